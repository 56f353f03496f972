package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/model"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx so the same
// statements run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReservationReader loads reservations.
type ReservationReader interface {
	// GetReservation returns ErrNotFound when no row has the id.  Inside a
	// transaction the row is locked for update.
	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	// FindByRoom returns the reservations of the room that overlap within,
	// ordered by start.  A non-zero excludeID drops that reservation.
	FindByRoom(ctx context.Context, room booking.RoomRef, within booking.Interval, excludeID uint64) ([]model.Reservation, error)
}

// ReservationTx is the write side of the reservation store, only
// available inside a transaction.
type ReservationTx interface {
	ReservationReader
	CreateReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	// DeleteReservation removes the reservation and its participants.
	DeleteReservation(ctx context.Context, id uint64) error
}

// ReservationStore is the reservation collaborator consumed by the
// booking services.
type ReservationStore interface {
	ReservationReader
	ListReservations(ctx context.Context, offset, limit int) ([]model.Reservation, error)
	// WithRoomLocks runs fn in one transaction while holding an exclusive
	// lock on every room in rooms, so no other booking on those rooms can
	// interleave between its conflict check and its commit.
	WithRoomLocks(ctx context.Context, rooms []booking.RoomRef, fn func(tx ReservationTx) error) error
	// WithTx runs fn in one transaction without room locks.
	WithTx(ctx context.Context, fn func(tx ReservationTx) error) error
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	CreatorID  uint64 // 0 means any creator
	OnlyActive bool
	Offset     int
	Limit      int
}

// RoomStore persists rooms.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id uint64) (model.Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]model.Room, error)
	UpdateRoom(ctx context.Context, room *model.Room) error
	// DeleteRoom returns ErrInUse while reservations still reference the room.
	DeleteRoom(ctx context.Context, id uint64) error
}

// InvitationFilter narrows the invitations listed for a user.
type InvitationFilter struct {
	OnlyUnnotified bool
	OnlyUnseen     bool
}

// ParticipantStore persists reservation participants.
type ParticipantStore interface {
	GetParticipant(ctx context.Context, reservationID, userID uint64) (model.Participant, error)
	// CreateParticipant returns ErrDuplicate when the pair already exists.
	CreateParticipant(ctx context.Context, p *model.Participant) error
	DeleteParticipant(ctx context.Context, reservationID, userID uint64) (bool, error)
	MarkNotified(ctx context.Context, reservationID, userID uint64) (bool, error)
	MarkSeen(ctx context.Context, reservationID, userID uint64) (bool, error)
	CountUnseen(ctx context.Context, userID uint64) (int, error)
	ListByReservation(ctx context.Context, reservationID uint64) ([]model.Participant, error)
	ListInvitations(ctx context.Context, userID uint64, filter InvitationFilter) ([]model.Invitation, error)
}

// UserStore persists users.
type UserStore interface {
	// CreateUser returns ErrDuplicate when the username or email is taken.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id uint64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	ListNonAdminUsers(ctx context.Context) ([]model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}
