package testfixtures

import (
	"context"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/queue"
)

// SeedUser stores a user with generated username and email.
func (s *Store) SeedUser(t testing.TB, admin bool) model.User {
	t.Helper()
	name := gofakeit.Name()
	u := model.User{
		Name:         &name,
		Username:     gofakeit.Username() + gofakeit.DigitN(4),
		Email:        gofakeit.Email(),
		PasswordHash: "$2a$04$notarealhashnotarealhashnotarealhashnotarealhash",
		IsAdmin:      admin,
	}
	if err := s.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedRoom stores an active room created by creator.
func (s *Store) SeedRoom(t testing.TB, creator uint64) model.Room {
	t.Helper()
	capacity := uint32(gofakeit.Number(2, 20))
	r := model.Room{
		Name:      "Sala " + gofakeit.Color(),
		Location:  gofakeit.Street(),
		Capacity:  &capacity,
		CreatorID: creator,
		IsActive:  true,
	}
	if err := s.CreateRoom(context.Background(), &r); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return r
}

// Events records published events.
type Events struct {
	mu  sync.Mutex
	Err error
	got []queue.Event
}

func (e *Events) Publish(_ context.Context, ev queue.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	e.got = append(e.got, ev)
	return nil
}

// Types returns the types of the recorded events in publish order.
func (e *Events) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.got))
	for i, ev := range e.got {
		out[i] = ev.Type
	}
	return out
}

// Last returns the most recent event.
func (e *Events) Last() queue.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.got) == 0 {
		return queue.Event{}
	}
	return e.got[len(e.got)-1]
}
