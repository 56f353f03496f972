package model

import (
	"time"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
)

// Reservation is a booked time range on a room, owned by the user who
// made it.
//
// Fields:
//
//	ID                – primary key identifier.
//	Room              – room by id (reservas.sala_id) or, for legacy rows,
//	                    by free-text name (reservas.sala).  Never both.
//	Location          – legacy free-text location (nullable).
//	StartsAt, EndsAt  – half-open booked range, stored in UTC; EndsAt > StartsAt.
//	OwnerID           – responsible user; the only user allowed to mutate it.
//	CoffeeQuantity    – optional number of coffees requested (>= 0).
//	CoffeeDescription – optional coffee notes.
//	MeetingLink       – optional video-conference link.
//	CreatedAt         – creation timestamp.
//	UpdatedAt         – last update timestamp.
type Reservation struct {
	ID                uint64          // reservas.id
	Room              booking.RoomRef // reservas.sala_id | reservas.sala
	Location          *string         // reservas.local (nullable)
	StartsAt          time.Time       // reservas.data_hora_inicio
	EndsAt            time.Time       // reservas.data_hora_fim
	OwnerID           uint64          // reservas.responsavel_id
	CoffeeQuantity    *int            // reservas.cafe_quantidade (nullable)
	CoffeeDescription *string         // reservas.cafe_descricao (nullable)
	MeetingLink       *string         // reservas.link_meet (nullable)
	CreatedAt         time.Time       // reservas.created_at
	UpdatedAt         time.Time       // reservas.updated_at
}

// Interval returns the booked range.
func (r Reservation) Interval() booking.Interval {
	return booking.Interval{Start: r.StartsAt, End: r.EndsAt}
}

// Intervals projects reservations onto their booked ranges.
func Intervals(rs []Reservation) []booking.Interval {
	out := make([]booking.Interval, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Interval())
	}
	return out
}
