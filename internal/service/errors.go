// Package service holds the booking use cases: the reservation lifecycle,
// availability, participants, rooms and users.  Services depend on the
// storage contracts in package repository and never on SQL.
package service

import (
	"errors"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
	"github.com/iliyamo/meeting-room-booking/internal/utils"
)

var (
	// ErrSchedulingConflict is returned when a candidate interval overlaps
	// an existing reservation of the same room.
	ErrSchedulingConflict = errors.New("scheduling conflict")
	// ErrNotFound is returned when an entity is absent or the caller may not
	// see it.  Ownership refusals on reservations and rooms collapse into it.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthorized is returned when the caller lacks the role for an
	// operation, e.g. a non-admin creating a room.
	ErrNotAuthorized      = errors.New("not authorized")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoomInactive       = errors.New("room is inactive")
	ErrRoomInUse          = errors.New("room has reservations")
	// ErrRoomBusy is returned when the room lock could not be taken in time.
	// The request may be retried.
	ErrRoomBusy        = errors.New("room is busy, retry later")
	ErrPasswordTooLong = utils.ErrPasswordTooLong
)

// ValidationError reports an input field that failed a business rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// ErrorKind maps err to a stable label used in logs and metrics.
func ErrorKind(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, booking.ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, booking.ErrInvalidIdentifier):
		return "invalid_identifier"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrSchedulingConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrRoomInactive):
		return "room_inactive"
	case errors.Is(err, ErrRoomInUse):
		return "room_in_use"
	case errors.Is(err, ErrRoomBusy):
		return "room_busy"
	case errors.Is(err, ErrPasswordTooLong):
		return "password_too_long"
	}
	return "internal"
}

// storageErr translates repository sentinels into service errors.
func storageErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrLockTimeout):
		return ErrRoomBusy
	case errors.Is(err, repository.ErrConflict):
		// only the end > start CHECK can fire on reservations
		return booking.ErrInvalidInterval
	}
	return err
}
