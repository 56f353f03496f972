package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/queue"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
)

// NewReservation is the input of Reservations.Create.
type NewReservation struct {
	Room              booking.RoomRef
	Interval          booking.Interval
	Location          *string
	CoffeeQuantity    *int
	CoffeeDescription *string
	MeetingLink       *string
}

// ReservationChanges is a partial update: nil fields are left untouched.
// Setting either RoomID or RoomName moves the reservation; setting both is
// an invalid identifier.
type ReservationChanges struct {
	RoomID            *uint64
	RoomName          *string
	StartsAt          *time.Time
	EndsAt            *time.Time
	Location          *string
	CoffeeQuantity    *int
	CoffeeDescription *string
	MeetingLink       *string
}

func (c ReservationChanges) movesRoom() bool { return c.RoomID != nil || c.RoomName != nil }

func (c ReservationChanges) touchesSchedule() bool {
	return c.movesRoom() || c.StartsAt != nil || c.EndsAt != nil
}

// apply returns r with the supplied fields overwritten.
func (c ReservationChanges) apply(r model.Reservation) (model.Reservation, error) {
	if c.movesRoom() {
		ref, err := booking.ParseRoomRef(c.RoomID, c.RoomName)
		if err != nil {
			return r, err
		}
		r.Room = ref
	}
	if c.StartsAt != nil {
		r.StartsAt = storedTime(*c.StartsAt)
	}
	if c.EndsAt != nil {
		r.EndsAt = storedTime(*c.EndsAt)
	}
	if c.Location != nil {
		r.Location = c.Location
	}
	if c.CoffeeQuantity != nil {
		r.CoffeeQuantity = c.CoffeeQuantity
	}
	if c.CoffeeDescription != nil {
		r.CoffeeDescription = c.CoffeeDescription
	}
	if c.MeetingLink != nil {
		r.MeetingLink = c.MeetingLink
	}
	return r, nil
}

// errRoomMoved signals that a concurrent update moved the reservation to a
// room that is not locked; the update is retried with fresh locks.
var errRoomMoved = errors.New("reservation moved during update")

const maxUpdateAttempts = 3

// Reservations is the reservation lifecycle manager.  Create and Update run
// their conflict check and their write in one transaction under the room
// lock, so two bookings of the same room are serialized.
type Reservations struct {
	log     *slog.Logger
	store   repository.ReservationStore
	rooms   repository.RoomStore
	metrics Metrics
	notify  notifier
	now     func() time.Time
}

func NewReservations(log *slog.Logger, store repository.ReservationStore, rooms repository.RoomStore, events EventPublisher, m Metrics) *Reservations {
	m = orNop(m)
	return &Reservations{
		log:     log,
		store:   store,
		rooms:   rooms,
		metrics: m,
		notify:  notifier{events: events, metrics: m, log: log, now: time.Now},
		now:     time.Now,
	}
}

// HasConflict reports whether candidate overlaps any reservation of room
// other than excludeID.
func (s *Reservations) HasConflict(ctx context.Context, room booking.RoomRef, candidate booking.Interval, excludeID uint64) (bool, error) {
	const op = "service.Reservations.HasConflict"
	if room.IsZero() {
		return false, fmt.Errorf("%s: %w", op, booking.ErrInvalidIdentifier)
	}
	if err := candidate.Validate(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	conflict, err := hasConflict(ctx, s.store, room, candidate, excludeID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return conflict, nil
}

func hasConflict(ctx context.Context, r repository.ReservationReader, room booking.RoomRef, candidate booking.Interval, excludeID uint64) (bool, error) {
	existing, err := r.FindByRoom(ctx, room, candidate, excludeID)
	if err != nil {
		return false, err
	}
	return booking.HasConflict(candidate, model.Intervals(existing)), nil
}

// Create books in.Interval on in.Room for owner.
func (s *Reservations) Create(ctx context.Context, owner uint64, in NewReservation) (model.Reservation, error) {
	const op = "service.Reservations.Create"
	log := s.log.With(slog.String("op", op), slog.Uint64("owner_id", owner), roomAttr(in.Room))

	res, err := s.create(ctx, owner, in)
	s.metrics.Booking("create", ErrorKind(err))
	if err != nil {
		s.logOutcome(log, "reservation refused", err)
		return model.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("reservation created", slog.Uint64("reservation_id", res.ID))
	s.notify.publish(ctx, reservationEvent(queue.ReservationCreated, res, owner))
	return res, nil
}

func (s *Reservations) create(ctx context.Context, owner uint64, in NewReservation) (model.Reservation, error) {
	in.Interval = booking.Interval{Start: storedTime(in.Interval.Start), End: storedTime(in.Interval.End)}
	if in.Room.IsZero() {
		return model.Reservation{}, booking.ErrInvalidIdentifier
	}
	if err := in.Interval.Validate(); err != nil {
		return model.Reservation{}, err
	}
	if err := validateMetadata(in.CoffeeQuantity); err != nil {
		return model.Reservation{}, err
	}
	if err := s.checkRoomBookable(ctx, in.Room); err != nil {
		return model.Reservation{}, err
	}

	res := model.Reservation{
		Room:              in.Room,
		Location:          in.Location,
		StartsAt:          in.Interval.Start,
		EndsAt:            in.Interval.End,
		OwnerID:           owner,
		CoffeeQuantity:    in.CoffeeQuantity,
		CoffeeDescription: in.CoffeeDescription,
		MeetingLink:       in.MeetingLink,
	}
	err := s.locked(ctx, []booking.RoomRef{in.Room}, func(tx repository.ReservationTx) error {
		conflict, err := hasConflict(ctx, tx, in.Room, in.Interval, 0)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSchedulingConflict
		}
		return tx.CreateReservation(ctx, &res)
	})
	if err != nil {
		return model.Reservation{}, storageErr(err)
	}
	return res, nil
}

// Update applies changes to the reservation id on behalf of actor.  A
// reservation that does not exist and one owned by somebody else both
// yield ErrNotFound.
func (s *Reservations) Update(ctx context.Context, actor uint64, id uint64, changes ReservationChanges) (model.Reservation, error) {
	const op = "service.Reservations.Update"
	log := s.log.With(slog.String("op", op), slog.Uint64("actor_id", actor), slog.Uint64("reservation_id", id))

	var (
		res model.Reservation
		err error
	)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		res, err = s.update(ctx, actor, id, changes)
		if !errors.Is(err, errRoomMoved) {
			break
		}
		log.Debug("reservation moved concurrently, retrying", slog.Int("attempt", attempt+1))
	}
	if errors.Is(err, errRoomMoved) {
		err = ErrRoomBusy
	}
	s.metrics.Booking("update", ErrorKind(err))
	if err != nil {
		s.logOutcome(log, "reservation update refused", err)
		return model.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("reservation updated", roomAttr(res.Room))
	s.notify.publish(ctx, reservationEvent(queue.ReservationUpdated, res, actor))
	return res, nil
}

func (s *Reservations) update(ctx context.Context, actor uint64, id uint64, changes ReservationChanges) (model.Reservation, error) {
	current, err := s.loadOwned(ctx, s.store, actor, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := validateMetadata(changes.CoffeeQuantity); err != nil {
		return model.Reservation{}, err
	}

	// Validate against the row as loaded so obviously bad input fails
	// before any lock is taken.  The checks are repeated on the locked row.
	target, err := changes.apply(current)
	if err != nil {
		return model.Reservation{}, err
	}
	if !changes.touchesSchedule() {
		err := s.store.WithTx(ctx, func(tx repository.ReservationTx) error {
			fresh, err := s.loadOwned(ctx, tx, actor, id)
			if err != nil {
				return err
			}
			if target, err = changes.apply(fresh); err != nil {
				return err
			}
			return tx.UpdateReservation(ctx, &target)
		})
		return target, storageErr(err)
	}

	if err := target.Interval().Validate(); err != nil {
		return model.Reservation{}, err
	}
	if changes.movesRoom() && !target.Room.Equal(current.Room) {
		if err := s.checkRoomBookable(ctx, target.Room); err != nil {
			return model.Reservation{}, err
		}
	}

	rooms := []booking.RoomRef{current.Room, target.Room}
	err = s.locked(ctx, rooms, func(tx repository.ReservationTx) error {
		fresh, err := s.loadOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !fresh.Room.Equal(current.Room) {
			return errRoomMoved
		}
		if target, err = changes.apply(fresh); err != nil {
			return err
		}
		iv := target.Interval()
		if err := iv.Validate(); err != nil {
			return err
		}
		conflict, err := hasConflict(ctx, tx, target.Room, iv, id)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSchedulingConflict
		}
		return tx.UpdateReservation(ctx, &target)
	})
	if err != nil {
		return model.Reservation{}, storageErr(err)
	}
	return target, nil
}

// Delete removes the reservation id and its participants.
func (s *Reservations) Delete(ctx context.Context, actor uint64, id uint64) error {
	const op = "service.Reservations.Delete"
	log := s.log.With(slog.String("op", op), slog.Uint64("actor_id", actor), slog.Uint64("reservation_id", id))

	var deleted model.Reservation
	err := s.store.WithTx(ctx, func(tx repository.ReservationTx) error {
		res, err := s.loadOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		deleted = res
		return tx.DeleteReservation(ctx, id)
	})
	err = storageErr(err)
	s.metrics.Booking("delete", ErrorKind(err))
	if err != nil {
		s.logOutcome(log, "reservation delete refused", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("reservation deleted")
	s.notify.publish(ctx, reservationEvent(queue.ReservationDeleted, deleted, actor))
	return nil
}

// Get returns the reservation id.
func (s *Reservations) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	const op = "service.Reservations.Get"
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("%s: %w", op, storageErr(err))
	}
	return res, nil
}

// List pages through reservations, latest start first.  A non-positive
// limit means 100.
func (s *Reservations) List(ctx context.Context, offset, limit int) ([]model.Reservation, error) {
	const op = "service.Reservations.List"
	offset, limit = clampPage(offset, limit)
	out, err := s.store.ListReservations(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out == nil {
		out = []model.Reservation{}
	}
	return out, nil
}

// loadOwned loads a reservation and applies the ownership check, folding
// "not yours" into ErrNotFound.
func (s *Reservations) loadOwned(ctx context.Context, r repository.ReservationReader, actor, id uint64) (model.Reservation, error) {
	res, err := r.GetReservation(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Reservation{}, err
	}
	access := booking.CheckOwner(actor, res.OwnerID, err == nil)
	if access == booking.Forbidden {
		s.log.Debug("reservation owned by another user", slog.Uint64("reservation_id", id), slog.Uint64("actor_id", actor))
	}
	if access.Collapse() != booking.Authorized {
		return model.Reservation{}, ErrNotFound
	}
	return res, nil
}

// checkRoomBookable requires a by-id room to exist and be active.  Legacy
// by-name rooms have no row to check.
func (s *Reservations) checkRoomBookable(ctx context.Context, ref booking.RoomRef) error {
	id, ok := ref.ID()
	if !ok {
		return nil
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if !room.IsActive {
		return ErrRoomInactive
	}
	return nil
}

func (s *Reservations) locked(ctx context.Context, rooms []booking.RoomRef, fn func(tx repository.ReservationTx) error) error {
	start := s.now()
	err := s.store.WithRoomLocks(ctx, rooms, fn)
	s.metrics.LockHeld(s.now().Sub(start).Seconds())
	return err
}

func (s *Reservations) logOutcome(log *slog.Logger, msg string, err error) {
	if ErrorKind(err) == "internal" {
		log.Error(msg, logger.Err(err))
		return
	}
	log.Warn(msg, slog.String("kind", ErrorKind(err)), logger.Err(err))
}

// storedTime drops what a DATETIME column cannot hold, so the interval that
// is checked for conflicts is the one that gets written.
func storedTime(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }

func validateMetadata(coffee *int) error {
	if coffee != nil && *coffee < 0 {
		return invalid("coffee_quantity", "must be >= 0")
	}
	return nil
}
