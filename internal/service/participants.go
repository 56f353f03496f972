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

// Participants tracks who is invited to a reservation and whether they
// have been notified and have seen the invitation.
type Participants struct {
	log          *slog.Logger
	reservations repository.ReservationReader
	participants repository.ParticipantStore
	users        repository.UserStore
	metrics      Metrics
	notify       notifier
}

func NewParticipants(log *slog.Logger, reservations repository.ReservationReader, participants repository.ParticipantStore, users repository.UserStore, events EventPublisher, m Metrics) *Participants {
	m = orNop(m)
	return &Participants{
		log:          log,
		reservations: reservations,
		participants: participants,
		users:        users,
		metrics:      m,
		notify:       notifier{events: events, metrics: m, log: log, now: time.Now},
	}
}

// Add invites user to the reservation on behalf of its owner.  Adding a
// pair that already exists returns the existing record.  Every refusal
// (missing reservation, caller not the owner, missing or admin user) is
// reported as ErrNotFound.
func (s *Participants) Add(ctx context.Context, actor, reservationID, userID uint64) (model.Participant, error) {
	const op = "service.Participants.Add"
	log := s.log.With(slog.String("op", op), slog.Uint64("actor_id", actor),
		slog.Uint64("reservation_id", reservationID), slog.Uint64("user_id", userID))

	p, created, res, err := s.add(ctx, actor, reservationID, userID)
	s.metrics.Participant("add", ErrorKind(err))
	if err != nil {
		if ErrorKind(err) == "internal" {
			log.Error("add participant failed", logger.Err(err))
		} else {
			log.Warn("add participant refused", slog.String("kind", ErrorKind(err)))
		}
		return model.Participant{}, fmt.Errorf("%s: %w", op, err)
	}
	if created {
		log.Info("participant added")
		ev := reservationEvent(queue.ParticipantAdded, res, actor)
		ev.ParticipantID = userID
		s.notify.publish(ctx, ev)
	}
	return p, nil
}

func (s *Participants) add(ctx context.Context, actor, reservationID, userID uint64) (model.Participant, bool, model.Reservation, error) {
	res, err := s.ownedReservation(ctx, actor, reservationID)
	if err != nil {
		return model.Participant{}, false, res, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return model.Participant{}, false, res, storageErr(err)
	}
	if user.IsAdmin {
		s.log.Debug("refusing to invite an administrator", slog.Uint64("user_id", userID))
		return model.Participant{}, false, res, ErrNotFound
	}

	existing, err := s.participants.GetParticipant(ctx, reservationID, userID)
	if err == nil {
		return existing, false, res, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Participant{}, false, res, err
	}

	p := model.Participant{ReservationID: reservationID, UserID: userID}
	err = s.participants.CreateParticipant(ctx, &p)
	if errors.Is(err, repository.ErrDuplicate) {
		// lost a race with a concurrent add of the same pair
		existing, err := s.participants.GetParticipant(ctx, reservationID, userID)
		return existing, false, res, storageErr(err)
	}
	if errors.Is(err, repository.ErrInUse) {
		// reservation deleted between the check and the insert
		return model.Participant{}, false, res, ErrNotFound
	}
	if err != nil {
		return model.Participant{}, false, res, err
	}
	return p, true, res, nil
}

// Remove uninvites user.  It reports false when the caller is not the
// owner, or the reservation or the pair does not exist.
func (s *Participants) Remove(ctx context.Context, actor, reservationID, userID uint64) (bool, error) {
	const op = "service.Participants.Remove"
	res, err := s.ownedReservation(ctx, actor, reservationID)
	if errors.Is(err, ErrNotFound) {
		s.metrics.Participant("remove", "not_found")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	removed, err := s.participants.DeleteParticipant(ctx, reservationID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !removed {
		s.metrics.Participant("remove", "not_found")
		return false, nil
	}
	s.metrics.Participant("remove", "ok")
	s.log.Info("participant removed", slog.String("op", op),
		slog.Uint64("reservation_id", reservationID), slog.Uint64("user_id", userID))
	ev := reservationEvent(queue.ParticipantRemoved, res, actor)
	ev.ParticipantID = userID
	s.notify.publish(ctx, ev)
	return true, nil
}

// MarkNotified flags the caller's invitation to the reservation as
// notified.  It reports false when the caller is not invited.
func (s *Participants) MarkNotified(ctx context.Context, user, reservationID uint64) (bool, error) {
	ok, err := s.participants.MarkNotified(ctx, reservationID, user)
	s.metrics.Participant("mark_notified", markOutcome(ok, err))
	if err != nil {
		return false, fmt.Errorf("service.Participants.MarkNotified: %w", err)
	}
	return ok, nil
}

// MarkSeen flags the caller's invitation to the reservation as seen.
func (s *Participants) MarkSeen(ctx context.Context, user, reservationID uint64) (bool, error) {
	ok, err := s.participants.MarkSeen(ctx, reservationID, user)
	s.metrics.Participant("mark_seen", markOutcome(ok, err))
	if err != nil {
		return false, fmt.Errorf("service.Participants.MarkSeen: %w", err)
	}
	return ok, nil
}

func markOutcome(ok bool, err error) string {
	switch {
	case err != nil:
		return "internal"
	case !ok:
		return "not_found"
	}
	return "ok"
}

// CountUnseen counts the invitations of user not yet seen.
func (s *Participants) CountUnseen(ctx context.Context, user uint64) (int, error) {
	n, err := s.participants.CountUnseen(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("service.Participants.CountUnseen: %w", err)
	}
	return n, nil
}

// ListByReservation lists the participants of a reservation.
func (s *Participants) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Participant, error) {
	const op = "service.Participants.ListByReservation"
	if _, err := s.reservations.GetReservation(ctx, reservationID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storageErr(err))
	}
	out, err := s.participants.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out == nil {
		out = []model.Participant{}
	}
	return out, nil
}

// ListForUser lists the invitations of user, newest first.
func (s *Participants) ListForUser(ctx context.Context, user uint64, filter repository.InvitationFilter) ([]model.Invitation, error) {
	out, err := s.participants.ListInvitations(ctx, user, filter)
	if err != nil {
		return nil, fmt.Errorf("service.Participants.ListForUser: %w", err)
	}
	if out == nil {
		out = []model.Invitation{}
	}
	return out, nil
}

// ListInvitableUsers lists every user that may be invited.
func (s *Participants) ListInvitableUsers(ctx context.Context) ([]model.User, error) {
	out, err := s.users.ListNonAdminUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.Participants.ListInvitableUsers: %w", err)
	}
	if out == nil {
		out = []model.User{}
	}
	return out, nil
}

func (s *Participants) ownedReservation(ctx context.Context, actor, reservationID uint64) (model.Reservation, error) {
	res, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Reservation{}, err
	}
	if booking.CheckOwner(actor, res.OwnerID, err == nil).Collapse() != booking.Authorized {
		return model.Reservation{}, ErrNotFound
	}
	return res, nil
}
