package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/queue"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID      uint64
	IsAdmin bool
}

// EventPublisher receives domain events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Metrics is the subset of *metrics.Metrics used by the services.
type Metrics interface {
	Booking(op, outcome string)
	Participant(op, outcome string)
	LockHeld(seconds float64)
	Event(routingKey string, ok bool)
}

type nopMetrics struct{}

func (nopMetrics) Booking(string, string)     {}
func (nopMetrics) Participant(string, string) {}
func (nopMetrics) LockHeld(float64)           {}
func (nopMetrics) Event(string, bool)         {}

// notifier publishes events without ever failing the caller.
type notifier struct {
	events  EventPublisher
	metrics Metrics
	log     *slog.Logger
	now     func() time.Time
}

func (n notifier) publish(ctx context.Context, ev queue.Event) {
	if n.events == nil {
		return
	}
	ev.OccurredAt = n.now().UTC()
	// the request may be finishing; the event is already committed state
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	err := n.events.Publish(ctx, ev)
	n.metrics.Event(ev.Type, err == nil)
	if err != nil {
		n.log.Warn("publish event failed", slog.String("type", ev.Type),
			slog.Uint64("reservation_id", ev.ReservationID), logger.Err(err))
	}
}

func reservationEvent(typ string, r model.Reservation, actor uint64) queue.Event {
	ev := queue.Event{
		Type:          typ,
		ReservationID: r.ID,
		OwnerID:       r.OwnerID,
		StartsAt:      r.StartsAt,
		EndsAt:        r.EndsAt,
		ActorID:       actor,
	}
	if id, ok := r.Room.ID(); ok {
		ev.RoomID = id
	} else if name, ok := r.Room.Name(); ok {
		ev.RoomName = name
	}
	return ev
}

func roomAttr(r booking.RoomRef) slog.Attr { return slog.String("room", r.String()) }

func orNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return offset, limit
}
