package model

import "time"

// Participant links a user invited to a reservation.  The pair
// (ReservationID, UserID) is unique.  The reservation owner adds and
// removes participants; Notified and Seen are flipped by the invited user.
type Participant struct {
	ID            uint64    // reserva_participantes.id
	ReservationID uint64    // reserva_participantes.reserva_id
	UserID        uint64    // reserva_participantes.usuario_id
	Notified      bool      // reserva_participantes.notificado
	Seen          bool      // reserva_participantes.visto
	CreatedAt     time.Time // reserva_participantes.created_at
}

// Invitation is a participant row joined with its reservation, as listed
// for the invited user.
type Invitation struct {
	Participant
	Reservation Reservation
}
