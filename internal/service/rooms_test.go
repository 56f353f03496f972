package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

func TestRooms(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := service.NewRooms(logger.Discard(), e.store)
	admin := service.Actor{ID: e.admin.ID, IsAdmin: true}
	otherAdmin := e.store.SeedUser(t, true)

	_, err := svc.Create(ctx, service.Actor{ID: e.owner.ID}, service.RoomInput{Name: "A", Location: "1st floor"})
	assert.ErrorIs(t, err, service.ErrNotAuthorized)

	_, err = svc.Create(ctx, admin, service.RoomInput{Name: " ", Location: "1st floor"})
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	zero := uint32(0)
	_, err = svc.Create(ctx, admin, service.RoomInput{Name: "A", Location: "x", Capacity: &zero})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "capacity", ve.Field)

	room, err := svc.Create(ctx, admin, service.RoomInput{Name: "Aquario", Location: "2nd floor"})
	require.NoError(t, err)
	assert.True(t, room.IsActive)
	assert.Equal(t, e.admin.ID, room.CreatorID)

	mine, err := svc.ListByCreator(ctx, e.admin.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = svc.Update(ctx, service.Actor{ID: otherAdmin.ID, IsAdmin: true}, room.ID, service.RoomChanges{Name: ptr("Hijacked")})
	assert.ErrorIs(t, err, service.ErrNotFound, "another admin cannot edit")

	updated, err := svc.Update(ctx, admin, room.ID, service.RoomChanges{Active: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Aquario", updated.Name)

	active, err := svc.List(ctx, 0, 0, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	e.book(t, e.owner.ID, booking.RoomByID(e.room.ID), span(9, 0, 10, 0))
	assert.ErrorIs(t, svc.Delete(ctx, admin, e.room.ID), service.ErrRoomInUse)
	require.NoError(t, svc.Delete(ctx, admin, room.ID))
	_, err = svc.Get(ctx, room.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
