package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/queue"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
	"github.com/iliyamo/meeting-room-booking/internal/service"
	"github.com/iliyamo/meeting-room-booking/internal/testfixtures"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func span(h1, m1, h2, m2 int) booking.Interval {
	return booking.Interval{Start: at(h1, m1), End: at(h2, m2)}
}

func ptr[T any](v T) *T { return &v }

type env struct {
	store  *testfixtures.Store
	events *testfixtures.Events
	svc    *service.Reservations
	admin  model.User
	owner  model.User
	other  model.User
	room   model.Room
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := testfixtures.New()
	ev := &testfixtures.Events{}
	e := &env{
		store:  st,
		events: ev,
		svc:    service.NewReservations(logger.Discard(), st, st, ev, nil),
	}
	e.admin = st.SeedUser(t, true)
	e.owner = st.SeedUser(t, false)
	e.other = st.SeedUser(t, false)
	e.room = st.SeedRoom(t, e.admin.ID)
	return e
}

func (e *env) book(t *testing.T, owner uint64, room booking.RoomRef, iv booking.Interval) model.Reservation {
	t.Helper()
	res, err := e.svc.Create(context.Background(), owner, service.NewReservation{Room: room, Interval: iv})
	require.NoError(t, err)
	return res
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	room := booking.RoomByID(e.room.ID)

	res, err := e.svc.Create(ctx, e.owner.ID, service.NewReservation{
		Room:           room,
		Interval:       span(14, 0, 15, 0),
		CoffeeQuantity: ptr(3),
		MeetingLink:    ptr("https://meet.example/abc"),
	})
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Equal(t, e.owner.ID, res.OwnerID)
	assert.True(t, res.Room.Equal(room))
	assert.Equal(t, 3, *res.CoffeeQuantity)
	assert.Equal(t, []string{queue.ReservationCreated}, e.events.Types())
	assert.Equal(t, e.room.ID, e.events.Last().RoomID)
}

func TestCreateRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	room := booking.RoomByID(e.room.ID)
	e.book(t, e.other.ID, room, span(14, 30, 14, 45))

	inactive := e.store.SeedRoom(t, e.admin.ID)
	inactive.IsActive = false
	require.NoError(t, e.store.UpdateRoom(ctx, &inactive))

	cases := []struct {
		name string
		in   service.NewReservation
		want error
	}{
		{"overlap", service.NewReservation{Room: room, Interval: span(14, 0, 15, 0)}, service.ErrSchedulingConflict},
		{"zero length", service.NewReservation{Room: room, Interval: span(9, 0, 9, 0)}, booking.ErrInvalidInterval},
		{"inverted", service.NewReservation{Room: room, Interval: span(10, 0, 9, 0)}, booking.ErrInvalidInterval},
		{"no room", service.NewReservation{Interval: span(9, 0, 10, 0)}, booking.ErrInvalidIdentifier},
		{"unknown room", service.NewReservation{Room: booking.RoomByID(9999), Interval: span(9, 0, 10, 0)}, service.ErrNotFound},
		{"inactive room", service.NewReservation{Room: booking.RoomByID(inactive.ID), Interval: span(9, 0, 10, 0)}, service.ErrRoomInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Create(ctx, e.owner.ID, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := e.svc.Create(ctx, e.owner.ID, service.NewReservation{Room: room, Interval: span(9, 0, 10, 0), CoffeeQuantity: ptr(-1)})
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "coffee_quantity", ve.Field)

	list, err := e.svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1, "refused bookings leave no rows")
}

func TestCreateAdjacentIsNotAConflict(t *testing.T) {
	e := newEnv(t)
	room := booking.RoomByID(e.room.ID)
	e.book(t, e.owner.ID, room, span(9, 0, 10, 0))
	e.book(t, e.other.ID, room, span(10, 0, 11, 0))
	e.book(t, e.other.ID, room, span(8, 0, 9, 0))
}

func TestSubSecondTimesAreStoredWholeSeconds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	room := booking.RoomByID(e.room.ID)
	ms := func(h, m, s, milli int) time.Time {
		return at(h, m).Add(time.Duration(s)*time.Second + time.Duration(milli)*time.Millisecond)
	}

	first := e.book(t, e.owner.ID, room, booking.Interval{Start: at(9, 0), End: ms(9, 59, 59, 600)})
	assert.Equal(t, ms(9, 59, 59, 0), first.EndsAt)

	// starts in the same second the first booking ends
	second := e.book(t, e.other.ID, room, booking.Interval{Start: ms(9, 59, 59, 700), End: at(10, 30)})
	assert.Equal(t, ms(9, 59, 59, 0), second.StartsAt)

	stored, err := e.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.EndsAt, stored.EndsAt)

	moved, err := e.svc.Update(ctx, e.other.ID, second.ID, service.ReservationChanges{EndsAt: ptr(ms(10, 44, 59, 999))})
	require.NoError(t, err)
	assert.Equal(t, ms(10, 44, 59, 0), moved.EndsAt)

	_, err = e.svc.Create(ctx, e.owner.ID, service.NewReservation{
		Room:     room,
		Interval: booking.Interval{Start: ms(12, 0, 0, 200), End: ms(12, 0, 0, 800)},
	})
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)
}

func TestRoomIdentifiersNeverCrossMatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.book(t, e.owner.ID, booking.RoomByName(e.room.Name), span(9, 0, 10, 0))

	conflict, err := e.svc.HasConflict(ctx, booking.RoomByID(e.room.ID), span(9, 0, 10, 0), 0)
	require.NoError(t, err)
	assert.False(t, conflict)

	conflict, err = e.svc.HasConflict(ctx, booking.RoomByName(e.room.Name), span(9, 30, 10, 30), 0)
	require.NoError(t, err)
	assert.True(t, conflict)

	_, err = e.svc.HasConflict(ctx, booking.RoomRef{}, span(9, 0, 10, 0), 0)
	assert.ErrorIs(t, err, booking.ErrInvalidIdentifier)
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	room := booking.RoomByID(e.room.ID)
	res := e.book(t, e.owner.ID, room, span(9, 0, 10, 0))
	e.book(t, e.other.ID, room, span(11, 0, 12, 0))

	t.Run("same interval excludes itself", func(t *testing.T) {
		got, err := e.svc.Update(ctx, e.owner.ID, res.ID, service.ReservationChanges{
			StartsAt: ptr(at(9, 0)),
			EndsAt:   ptr(at(10, 0)),
		})
		require.NoError(t, err)
		assert.Equal(t, at(9, 0), got.StartsAt)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		got, err := e.svc.Update(ctx, e.owner.ID, res.ID, service.ReservationChanges{MeetingLink: ptr("https://meet.example/x")})
		require.NoError(t, err)
		assert.Equal(t, "https://meet.example/x", *got.MeetingLink)
		assert.Equal(t, at(9, 0), got.StartsAt)
		assert.Equal(t, at(10, 0), got.EndsAt)
		assert.True(t, got.Room.Equal(room))

		got, err = e.svc.Update(ctx, e.owner.ID, res.ID, service.ReservationChanges{CoffeeQuantity: ptr(2)})
		require.NoError(t, err)
		require.NotNil(t, got.MeetingLink, "earlier change must survive")
	})

	t.Run("extend into neighbour", func(t *testing.T) {
		_, err := e.svc.Update(ctx, e.owner.ID, res.ID, service.ReservationChanges{EndsAt: ptr(at(11, 30))})
		assert.ErrorIs(t, err, service.ErrSchedulingConflict)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := e.svc.Update(ctx, e.owner.ID, res.ID, service.ReservationChanges{EndsAt: ptr(at(8, 0))})
		assert.ErrorIs(t, err, booking.ErrInvalidInterval)
	})

	t.Run("both identifiers", func(t *testing.T) {
		_, err := e.svc.Update(ctx, e.owner.ID, res.ID, service.ReservationChanges{RoomID: ptr(e.room.ID), RoomName: ptr("x")})
		assert.ErrorIs(t, err, booking.ErrInvalidIdentifier)
	})

	t.Run("move to another room", func(t *testing.T) {
		other := e.store.SeedRoom(t, e.admin.ID)
		got, err := e.svc.Update(ctx, e.owner.ID, res.ID, service.ReservationChanges{RoomID: ptr(other.ID), EndsAt: ptr(at(12, 0))})
		require.NoError(t, err)
		id, ok := got.Room.ID()
		require.True(t, ok)
		assert.Equal(t, other.ID, id)
	})

	t.Run("not the owner looks like not found", func(t *testing.T) {
		_, errForeign := e.svc.Update(ctx, e.other.ID, res.ID, service.ReservationChanges{MeetingLink: ptr("x")})
		_, errMissing := e.svc.Update(ctx, e.other.ID, 9999, service.ReservationChanges{MeetingLink: ptr("x")})
		assert.ErrorIs(t, errForeign, service.ErrNotFound)
		assert.ErrorIs(t, errMissing, service.ErrNotFound)
	})

	assert.Contains(t, e.events.Types(), queue.ReservationUpdated)
}

func TestDeleteCascadesParticipants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.book(t, e.owner.ID, booking.RoomByID(e.room.ID), span(9, 0, 10, 0))
	require.NoError(t, e.store.CreateParticipant(ctx, &model.Participant{ReservationID: res.ID, UserID: e.other.ID}))
	require.Equal(t, 1, e.store.Participants())

	assert.ErrorIs(t, e.svc.Delete(ctx, e.other.ID, res.ID), service.ErrNotFound)
	require.NoError(t, e.svc.Delete(ctx, e.owner.ID, res.ID))
	assert.Zero(t, e.store.Participants())

	_, err := e.svc.Get(ctx, res.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorIs(t, e.svc.Delete(ctx, e.owner.ID, res.ID), service.ErrNotFound)
	assert.Equal(t, queue.ReservationDeleted, e.events.Last().Type)
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	e := newEnv(t)
	e.events.Err = errors.New("broker down")
	e.book(t, e.owner.ID, booking.RoomByID(e.room.ID), span(9, 0, 10, 0))
}

func TestStorageErrorsPropagate(t *testing.T) {
	e := newEnv(t)
	boom := errors.New("db gone")
	e.store.Fail("FindByRoom", boom)
	_, err := e.svc.Create(context.Background(), e.owner.ID, service.NewReservation{Room: booking.RoomByID(e.room.ID), Interval: span(9, 0, 10, 0)})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "internal", service.ErrorKind(err))

	e.store.Fail("FindByRoom", nil)
	e.store.Fail("WithRoomLocks", repository.ErrLockTimeout)
	_, err = e.svc.Create(context.Background(), e.owner.ID, service.NewReservation{Room: booking.RoomByID(e.room.ID), Interval: span(9, 0, 10, 0)})
	assert.ErrorIs(t, err, service.ErrRoomBusy)
}

// Concurrent overlapping bookings of one room: exactly one wins.
func TestConcurrentCreateIsSerializedPerRoom(t *testing.T) {
	e := newEnv(t)
	room := booking.RoomByID(e.room.ID)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.svc.Create(context.Background(), e.owner.ID, service.NewReservation{
				Room:     room,
				Interval: span(9, i, 10, i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, service.ErrSchedulingConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestListDefaults(t *testing.T) {
	e := newEnv(t)
	room := booking.RoomByID(e.room.ID)
	for h := 8; h < 12; h++ {
		e.book(t, e.owner.ID, room, span(h, 0, h+1, 0))
	}
	got, err := e.svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, at(10, 0), got[0].StartsAt)
	assert.Equal(t, at(9, 0), got[1].StartsAt)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "ok", service.ErrorKind(nil))
	assert.Equal(t, "conflict", service.ErrorKind(service.ErrSchedulingConflict))
	assert.Equal(t, "invalid_interval", service.ErrorKind(booking.ErrInvalidInterval))
	assert.Equal(t, "room_busy", service.ErrorKind(service.ErrRoomBusy))
	assert.Equal(t, "internal", service.ErrorKind(errors.New("x")))
}
