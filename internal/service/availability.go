package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
)

// DayQuery selects a room and a calendar day.  From and To override the
// default working window; each is an offset from local midnight.
type DayQuery struct {
	Room booking.RoomRef
	Day  time.Time
	From *time.Duration
	To   *time.Duration
}

// Availability derives free time for a room from its reservations.  It
// only reads and takes no locks.
type Availability struct {
	log          *slog.Logger
	store        repository.ReservationReader
	rooms        repository.RoomStore
	loc          *time.Location
	workdayStart time.Duration
	workdayEnd   time.Duration
}

func NewAvailability(log *slog.Logger, store repository.ReservationReader, rooms repository.RoomStore, loc *time.Location, workdayStart, workdayEnd time.Duration) *Availability {
	if loc == nil {
		loc = time.UTC
	}
	return &Availability{
		log:          log,
		store:        store,
		rooms:        rooms,
		loc:          loc,
		workdayStart: workdayStart,
		workdayEnd:   workdayEnd,
	}
}

// Location is the zone calendar days are interpreted in.
func (s *Availability) Location() *time.Location { return s.loc }

// Window resolves the working window of q.
func (s *Availability) Window(q DayQuery) (booking.Interval, error) {
	from, to := s.workdayStart, s.workdayEnd
	if q.From != nil {
		from = *q.From
	}
	if q.To != nil {
		to = *q.To
	}
	return booking.DayWindow(q.Day, s.loc, from, to)
}

// FreeIntervals returns the maximal free intervals of the room inside the
// working window of the day, in chronological order.
func (s *Availability) FreeIntervals(ctx context.Context, q DayQuery) ([]booking.Interval, error) {
	const op = "service.Availability.FreeIntervals"
	window, booked, err := s.load(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	free := booking.FreeIntervals(window, booked)
	s.log.Debug("free intervals derived", slog.String("op", op), roomAttr(q.Room),
		slog.Int("booked", len(booked)), slog.Int("free", len(free)))
	return free, nil
}

// FreeSlots returns the "HH:MM" start of every whole hour of the working
// window that no reservation touches.  It is coarser than FreeIntervals
// and may disagree with it inside an hour.
func (s *Availability) FreeSlots(ctx context.Context, q DayQuery) ([]string, error) {
	const op = "service.Availability.FreeSlots"
	window, booked, err := s.load(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return booking.FreeHourlySlots(window, booked), nil
}

func (s *Availability) load(ctx context.Context, q DayQuery) (booking.Interval, []booking.Interval, error) {
	if q.Room.IsZero() {
		return booking.Interval{}, nil, booking.ErrInvalidIdentifier
	}
	window, err := s.Window(q)
	if err != nil {
		return booking.Interval{}, nil, err
	}
	if id, ok := q.Room.ID(); ok {
		if _, err := s.rooms.GetRoom(ctx, id); err != nil {
			return booking.Interval{}, nil, storageErr(err)
		}
	}
	existing, err := s.store.FindByRoom(ctx, q.Room, window, 0)
	if err != nil {
		return booking.Interval{}, nil, err
	}
	return window, model.Intervals(existing), nil
}
