// Package testfixtures provides an in-memory implementation of the storage
// contracts for service and handler tests.  It mirrors the MySQL behavior
// the services rely on: unique keys, restrictive room deletes, cascading
// participant deletes and per-room locks around booking transactions.
package testfixtures

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
)

type pair struct{ reservation, user uint64 }

type token struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// Store implements every repository store interface in memory.
type Store struct {
	Now func() time.Time

	mu           sync.Mutex
	seq          uint64
	reservations map[uint64]model.Reservation
	rooms        map[uint64]model.Room
	participants map[pair]model.Participant
	users        map[uint64]model.User
	tokens       map[string]token
	failures     map[string]error

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

var (
	_ repository.ReservationStore = (*Store)(nil)
	_ repository.RoomStore        = (*Store)(nil)
	_ repository.ParticipantStore = (*Store)(nil)
	_ repository.UserStore        = (*Store)(nil)
	_ repository.TokenStore       = (*Store)(nil)
)

func New() *Store {
	return &Store{
		Now:          func() time.Time { return time.Now().UTC() },
		reservations: map[uint64]model.Reservation{},
		rooms:        map[uint64]model.Room{},
		participants: map[pair]model.Participant{},
		users:        map[uint64]model.User{},
		tokens:       map[string]token{},
		failures:     map[string]error{},
		locks:        map[string]*sync.Mutex{},
	}
}

// Fail makes every later call of the named method return err until
// cleared with a nil err.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// failure must be called with mu held.
func (s *Store) failure(method string) error { return s.failures[method] }

func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

// ---- reservations ----

func (s *Store) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetReservation"); err != nil {
		return model.Reservation{}, err
	}
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *Store) FindByRoom(ctx context.Context, room booking.RoomRef, within booking.Interval, excludeID uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("FindByRoom"); err != nil {
		return nil, err
	}
	return findByRoom(s.reservations, nil, room, within, excludeID), nil
}

func findByRoom(base map[uint64]model.Reservation, staged map[uint64]*model.Reservation, room booking.RoomRef, within booking.Interval, excludeID uint64) []model.Reservation {
	var out []model.Reservation
	consider := func(r model.Reservation) {
		if r.ID == excludeID || !r.Room.Equal(room) {
			return
		}
		if booking.Overlaps(r.Interval(), within) {
			out = append(out, r)
		}
	}
	for id, r := range base {
		if _, ok := staged[id]; ok {
			continue
		}
		consider(r)
	}
	for _, r := range staged {
		if r != nil {
			consider(*r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListReservations(ctx context.Context, offset, limit int) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.After(out[j].StartsAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, offset, limit), nil
}

func page[T any](in []T, offset, limit int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// WithRoomLocks takes an in-process mutex per room, in sorted key order.
func (s *Store) WithRoomLocks(ctx context.Context, rooms []booking.RoomRef, fn func(tx repository.ReservationTx) error) error {
	s.mu.Lock()
	err := s.failure("WithRoomLocks")
	s.mu.Unlock()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(rooms))
	seen := map[string]bool{}
	for _, r := range rooms {
		if k := r.LockKey(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		m := s.roomLock(k)
		m.Lock()
		defer m.Unlock()
	}
	return s.WithTx(ctx, fn)
}

func (s *Store) roomLock(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// WithTx stages writes and applies them only when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.ReservationTx) error) error {
	t := &tx{s: s, staged: map[uint64]*model.Reservation{}}
	if err := fn(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Commit"); err != nil {
		return err
	}
	for id, r := range t.staged {
		if r == nil {
			delete(s.reservations, id)
			for k := range s.participants {
				if k.reservation == id {
					delete(s.participants, k)
				}
			}
			continue
		}
		s.reservations[id] = *r
	}
	return nil
}

type tx struct {
	s      *Store
	staged map[uint64]*model.Reservation // nil marks a delete
}

func (t *tx) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	if r, ok := t.staged[id]; ok {
		if r == nil {
			return model.Reservation{}, repository.ErrNotFound
		}
		return *r, nil
	}
	return t.s.GetReservation(ctx, id)
}

func (t *tx) FindByRoom(ctx context.Context, room booking.RoomRef, within booking.Interval, excludeID uint64) ([]model.Reservation, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.failure("FindByRoom"); err != nil {
		return nil, err
	}
	return findByRoom(t.s.reservations, t.staged, room, within, excludeID), nil
}

func (t *tx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.failure("CreateReservation"); err != nil {
		return err
	}
	if err := t.s.checkReservationRow(*r); err != nil {
		return err
	}
	r.ID = t.s.nextID()
	r.CreatedAt = t.s.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	t.staged[r.ID] = &cp
	return nil
}

func (t *tx) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.failure("UpdateReservation"); err != nil {
		return err
	}
	if err := t.s.checkReservationRow(*r); err != nil {
		return err
	}
	if staged, ok := t.staged[r.ID]; ok && staged == nil {
		return repository.ErrNotFound
	} else if _, exists := t.s.reservations[r.ID]; !exists && !ok {
		return repository.ErrNotFound
	}
	r.UpdatedAt = t.s.Now()
	cp := *r
	t.staged[r.ID] = &cp
	return nil
}

func (t *tx) DeleteReservation(ctx context.Context, id uint64) error {
	if _, err := t.GetReservation(ctx, id); err != nil {
		return err
	}
	t.staged[id] = nil
	return nil
}

// checkReservationRow enforces the table constraints; mu must be held.
func (s *Store) checkReservationRow(r model.Reservation) error {
	if !r.EndsAt.After(r.StartsAt) || r.Room.IsZero() {
		return repository.ErrConflict
	}
	if id, ok := r.Room.ID(); ok {
		if _, exists := s.rooms[id]; !exists {
			return repository.ErrInUse
		}
	}
	return nil
}

// ---- rooms ----

func (s *Store) CreateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateRoom"); err != nil {
		return err
	}
	room.ID = s.nextID()
	room.CreatedAt = s.Now()
	room.UpdatedAt = room.CreatedAt
	s.rooms[room.ID] = *room
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return model.Room{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRooms(ctx context.Context, f repository.RoomFilter) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Room
	for _, r := range s.rooms {
		if f.CreatorID != 0 && r.CreatorID != f.CreatorID {
			continue
		}
		if f.OnlyActive && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Offset, f.Limit), nil
}

func (s *Store) UpdateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; !ok {
		return repository.ErrNotFound
	}
	room.UpdatedAt = s.Now()
	s.rooms[room.ID] = *room
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return repository.ErrNotFound
	}
	for _, r := range s.reservations {
		if rid, ok := r.Room.ID(); ok && rid == id {
			return repository.ErrInUse
		}
	}
	delete(s.rooms, id)
	return nil
}

// ---- participants ----

func (s *Store) GetParticipant(ctx context.Context, reservationID, userID uint64) (model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[pair{reservationID, userID}]
	if !ok {
		return model.Participant{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateParticipant(ctx context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateParticipant"); err != nil {
		return err
	}
	k := pair{p.ReservationID, p.UserID}
	if _, ok := s.participants[k]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := s.reservations[p.ReservationID]; !ok {
		return repository.ErrInUse
	}
	if _, ok := s.users[p.UserID]; !ok {
		return repository.ErrInUse
	}
	p.ID = s.nextID()
	p.Notified, p.Seen = false, false
	p.CreatedAt = s.Now()
	s.participants[k] = *p
	return nil
}

func (s *Store) DeleteParticipant(ctx context.Context, reservationID, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{reservationID, userID}
	if _, ok := s.participants[k]; !ok {
		return false, nil
	}
	delete(s.participants, k)
	return true, nil
}

func (s *Store) MarkNotified(ctx context.Context, reservationID, userID uint64) (bool, error) {
	return s.mark(reservationID, userID, func(p *model.Participant) { p.Notified = true })
}

func (s *Store) MarkSeen(ctx context.Context, reservationID, userID uint64) (bool, error) {
	return s.mark(reservationID, userID, func(p *model.Participant) { p.Seen = true })
}

func (s *Store) mark(reservationID, userID uint64, set func(*model.Participant)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{reservationID, userID}
	p, ok := s.participants[k]
	if !ok {
		return false, nil
	}
	set(&p)
	s.participants[k] = p
	return true, nil
}

func (s *Store) CountUnseen(ctx context.Context, userID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.participants {
		if p.UserID == userID && !p.Seen {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Participant
	for _, p := range s.participants {
		if p.ReservationID == reservationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) ListInvitations(ctx context.Context, userID uint64, f repository.InvitationFilter) ([]model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Invitation
	for _, p := range s.participants {
		if p.UserID != userID || (f.OnlyUnnotified && p.Notified) || (f.OnlyUnseen && p.Seen) {
			continue
		}
		out = append(out, model.Invitation{Participant: p, Reservation: s.reservations[p.ReservationID]})
	}
	// IDs grow with creation time
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	u.ID = s.nextID()
	u.CreatedAt = s.Now()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == strings.TrimSpace(username) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Store) ListNonAdminUsers(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.users {
		if !u.IsAdmin {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// ---- refresh tokens ----

func (s *Store) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tokenHash]; ok {
		return repository.ErrDuplicate
	}
	s.tokens[tokenHash] = token{userID: userID, exp: exp}
	return nil
}

func (s *Store) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.revoked || s.Now().After(t.exp) {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (s *Store) RevokeByHash(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok {
		t.revoked = true
		s.tokens[tokenHash] = t
	}
	return nil
}

func (s *Store) RevokeAllForUser(ctx context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
			s.tokens[h] = t
		}
	}
	return nil
}

// Participants returns the number of participant rows, for cascade checks.
func (s *Store) Participants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}
