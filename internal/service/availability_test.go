package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

func newAvailability(e *env, loc *time.Location) *service.Availability {
	return service.NewAvailability(logger.Discard(), e.store, e.store, loc, 8*time.Hour, 18*time.Hour)
}

func TestFreeIntervalsScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("single reservation", func(t *testing.T) {
		e := newEnv(t)
		room := booking.RoomByID(e.room.ID)
		e.book(t, e.owner.ID, room, span(10, 0, 11, 30))

		got, err := newAvailability(e, time.UTC).FreeIntervals(ctx, service.DayQuery{Room: room, Day: day})
		require.NoError(t, err)
		assert.Equal(t, []booking.Interval{span(8, 0, 10, 0), span(11, 30, 18, 0)}, got)
	})

	t.Run("reservations overlapping each other", func(t *testing.T) {
		e := newEnv(t)
		// legacy rows are not conflict checked against each other when
		// imported, so seed them straight into the store
		room := booking.RoomByName("Sala Antiga")
		e.book(t, e.owner.ID, room, span(9, 0, 10, 0))
		require.NoError(t, e.store.WithTx(ctx, seedOverlap(room, span(9, 30, 11, 0), e.owner.ID)))

		got, err := newAvailability(e, time.UTC).FreeIntervals(ctx, service.DayQuery{Room: room, Day: day})
		require.NoError(t, err)
		assert.Equal(t, []booking.Interval{span(8, 0, 9, 0), span(11, 0, 18, 0)}, got)
	})

	t.Run("other days and rooms do not count", func(t *testing.T) {
		e := newEnv(t)
		room := booking.RoomByID(e.room.ID)
		e.book(t, e.owner.ID, room, booking.Interval{Start: at(10, 0).Add(24 * time.Hour), End: at(11, 0).Add(24 * time.Hour)})
		other := e.store.SeedRoom(t, e.admin.ID)
		e.book(t, e.owner.ID, booking.RoomByID(other.ID), span(10, 0, 11, 0))

		got, err := newAvailability(e, time.UTC).FreeIntervals(ctx, service.DayQuery{Room: room, Day: day})
		require.NoError(t, err)
		assert.Equal(t, []booking.Interval{span(8, 0, 18, 0)}, got)
	})
}

func TestFreeSlots(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	room := booking.RoomByID(e.room.ID)
	e.book(t, e.owner.ID, room, span(9, 0, 9, 30))
	svc := newAvailability(e, time.UTC)

	from, to := 8*time.Hour, 11*time.Hour
	got, err := svc.FreeSlots(ctx, service.DayQuery{Room: room, Day: day, From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "10:00"}, got)

	all, err := svc.FreeSlots(ctx, service.DayQuery{Room: room, Day: day})
	require.NoError(t, err)
	assert.Len(t, all, 9)
}

func TestAvailabilityUsesConfiguredZone(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	room := booking.RoomByID(e.room.ID)
	brt := time.FixedZone("BRT", -3*60*60)
	// 13:00-14:00 UTC is 10:00-11:00 in BRT
	e.book(t, e.owner.ID, room, span(13, 0, 14, 0))

	got, err := newAvailability(e, brt).FreeSlots(ctx, service.DayQuery{Room: room, Day: time.Date(2025, 3, 10, 0, 0, 0, 0, brt)})
	require.NoError(t, err)
	assert.NotContains(t, got, "10:00")
	assert.Contains(t, got, "09:00")
	assert.Contains(t, got, "11:00")
}

func TestAvailabilityErrors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := newAvailability(e, time.UTC)

	_, err := svc.FreeIntervals(ctx, service.DayQuery{Day: day})
	assert.ErrorIs(t, err, booking.ErrInvalidIdentifier)

	_, err = svc.FreeIntervals(ctx, service.DayQuery{Room: booking.RoomByID(9999), Day: day})
	assert.ErrorIs(t, err, service.ErrNotFound)

	from, to := 12*time.Hour, 9*time.Hour
	_, err = svc.FreeSlots(ctx, service.DayQuery{Room: booking.RoomByID(e.room.ID), Day: day, From: &from, To: &to})
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)
}
