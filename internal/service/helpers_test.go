package service_test

import (
	"context"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
)

// seedOverlap writes a reservation without any conflict check.
func seedOverlap(room booking.RoomRef, iv booking.Interval, owner uint64) func(repository.ReservationTx) error {
	return func(tx repository.ReservationTx) error {
		return tx.CreateReservation(context.Background(), &model.Reservation{
			Room:     room,
			StartsAt: iv.Start,
			EndsAt:   iv.End,
			OwnerID:  owner,
		})
	}
}
