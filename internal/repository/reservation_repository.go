package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/meeting-room-booking/internal/booking"
	"github.com/iliyamo/meeting-room-booking/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  A
// reservation points at its room through sala_id or, for rows created
// before rooms existed, through the free-text sala column; a CHECK
// constraint keeps exactly one of them set.  All timestamp fields are
// stored in UTC.
type ReservationRepo struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewReservationRepo returns a new ReservationRepo bound to the given
// database.  lockTimeout bounds how long a booking waits for a room lock.
func NewReservationRepo(db *sql.DB, lockTimeout time.Duration) *ReservationRepo {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &ReservationRepo{db: db, lockTimeout: lockTimeout}
}

// DB exposes the underlying sql.DB.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, sala_id, sala, local, data_hora_inicio, data_hora_fim, responsavel_id,
       cafe_quantidade, cafe_descricao, link_meet, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	return scanReservationAfter(s)
}

// scanReservationAfter scans a row whose reservation columns follow the
// leading destinations in lead.
func scanReservationAfter(s rowScanner, lead ...any) (model.Reservation, error) {
	var (
		res      model.Reservation
		roomID   sql.NullInt64
		roomName sql.NullString
		location sql.NullString
		coffeeQt sql.NullInt64
		coffee   sql.NullString
		link     sql.NullString
	)
	dest := append(lead,
		&res.ID, &roomID, &roomName, &location, &res.StartsAt, &res.EndsAt, &res.OwnerID,
		&coffeeQt, &coffee, &link, &res.CreatedAt, &res.UpdatedAt,
	)
	if err := s.Scan(dest...); err != nil {
		return model.Reservation{}, err
	}
	if roomID.Valid {
		res.Room = booking.RoomByID(uint64(roomID.Int64))
	} else if roomName.Valid {
		res.Room = booking.RoomByName(roomName.String)
	}
	if location.Valid {
		l := location.String
		res.Location = &l
	}
	if coffeeQt.Valid {
		q := int(coffeeQt.Int64)
		res.CoffeeQuantity = &q
	}
	if coffee.Valid {
		c := coffee.String
		res.CoffeeDescription = &c
	}
	if link.Valid {
		l := link.String
		res.MeetingLink = &l
	}
	return res, nil
}

func scanReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// roomRefColumns returns the values stored in (sala_id, sala) for ref.
func roomRefColumns(ref booking.RoomRef) (any, any) {
	if id, ok := ref.ID(); ok {
		return id, nil
	}
	if name, ok := ref.Name(); ok {
		return nil, name
	}
	return nil, nil
}

func getReservation(ctx context.Context, q querier, id uint64, forUpdate bool) (model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservas WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	res, err := scanReservation(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// findByRoom never matches a by-id room against legacy by-name rows:
// name lookups are restricted to rows without sala_id.  Names compare
// byte for byte, the same way their room lock keys do.
func findByRoom(ctx context.Context, q querier, room booking.RoomRef, within booking.Interval, excludeID uint64) ([]model.Reservation, error) {
	var (
		where string
		key   any
	)
	if id, ok := room.ID(); ok {
		where, key = `sala_id = ?`, id
	} else if name, ok := room.Name(); ok {
		where, key = `sala_id IS NULL AND sala = ? COLLATE utf8mb4_bin`, name
	} else {
		return nil, booking.ErrInvalidIdentifier
	}
	query := `SELECT ` + reservationColumns + `
              FROM reservas
              WHERE ` + where + ` AND data_hora_inicio < ? AND data_hora_fim > ? AND id <> ?
              ORDER BY data_hora_inicio ASC, id ASC`
	rows, err := q.QueryContext(ctx, query, key, within.End.UTC(), within.Start.UTC(), excludeID)
	if err != nil {
		return nil, err
	}
	return scanReservations(rows)
}

// GetReservation returns the reservation with the given id or ErrNotFound.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return getReservation(ctx, r.db, id, false)
}

// FindByRoom returns reservations on the room overlapping within, ordered
// by start time ascending.
func (r *ReservationRepo) FindByRoom(ctx context.Context, room booking.RoomRef, within booking.Interval, excludeID uint64) ([]model.Reservation, error) {
	return findByRoom(ctx, r.db, room, within, excludeID)
}

// ListReservations pages through all reservations, newest start first.
func (r *ReservationRepo) ListReservations(ctx context.Context, offset, limit int) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservas ORDER BY data_hora_inicio DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	return scanReservations(rows)
}

// WithTx runs fn inside a transaction which is committed when fn returns
// nil and rolled back otherwise.
func (r *ReservationRepo) WithTx(ctx context.Context, fn func(tx ReservationTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	return runTx(tx, fn)
}

// WithRoomLocks serializes bookings per room with MySQL named locks.  The
// locks are session scoped, so a dedicated connection is pinned for the
// lock calls and the transaction, and the locks are released on that same
// connection after commit or rollback.  Keys are taken in sorted order so
// two bookings touching the same pair of rooms cannot deadlock.
func (r *ReservationRepo) WithRoomLocks(ctx context.Context, rooms []booking.RoomRef, fn func(tx ReservationTx) error) error {
	keys := lockKeys(rooms)
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	held := make([]string, 0, len(keys))
	defer func() {
		// released with a fresh context: the request context may already be done
		for i := len(held) - 1; i >= 0; i-- {
			_, _ = conn.ExecContext(context.Background(), `DO RELEASE_LOCK(?)`, held[i])
		}
	}()
	for _, k := range keys {
		if err := acquireLock(ctx, conn, k, r.lockTimeout); err != nil {
			return err
		}
		held = append(held, k)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	return runTx(tx, fn)
}

func runTx(tx *sql.Tx, fn func(tx ReservationTx) error) error {
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&reservationTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// reservationTx implements ReservationTx on top of a *sql.Tx.
type reservationTx struct {
	q querier
}

func (t *reservationTx) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return getReservation(ctx, t.q, id, true)
}

func (t *reservationTx) FindByRoom(ctx context.Context, room booking.RoomRef, within booking.Interval, excludeID uint64) ([]model.Reservation, error) {
	return findByRoom(ctx, t.q, room, within, excludeID)
}

// CreateReservation inserts res, then reads the row back so the generated
// ID and DB-default timestamps are populated on res.
func (t *reservationTx) CreateReservation(ctx context.Context, res *model.Reservation) error {
	roomID, roomName := roomRefColumns(res.Room)
	const q = `INSERT INTO reservas
               (sala_id, sala, local, data_hora_inicio, data_hora_fim, responsavel_id, cafe_quantidade, cafe_descricao, link_meet)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := t.q.ExecContext(ctx, q,
		roomID, roomName, res.Location, res.StartsAt.UTC(), res.EndsAt.UTC(), res.OwnerID,
		res.CoffeeQuantity, res.CoffeeDescription, res.MeetingLink,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	created, err := getReservation(ctx, t.q, uint64(id), false)
	if err != nil {
		return err
	}
	*res = created
	return nil
}

// UpdateReservation writes every mutable column of res and reloads it.
func (t *reservationTx) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	roomID, roomName := roomRefColumns(res.Room)
	const q = `UPDATE reservas
               SET sala_id = ?, sala = ?, local = ?, data_hora_inicio = ?, data_hora_fim = ?,
                   cafe_quantidade = ?, cafe_descricao = ?, link_meet = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
	result, err := t.q.ExecContext(ctx, q,
		roomID, roomName, res.Location, res.StartsAt.UTC(), res.EndsAt.UTC(),
		res.CoffeeQuantity, res.CoffeeDescription, res.MeetingLink, res.ID,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	updated, err := getReservation(ctx, t.q, res.ID, false)
	if err != nil {
		return err
	}
	*res = updated
	return nil
}

// DeleteReservation removes participants before the reservation itself so
// the cascade holds even where the FK lacks ON DELETE CASCADE.
func (t *reservationTx) DeleteReservation(ctx context.Context, id uint64) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM reserva_participantes WHERE reserva_id = ?`, id); err != nil {
		return err
	}
	result, err := t.q.ExecContext(ctx, `DELETE FROM reservas WHERE id = ?`, id)
	if err != nil {
		return mapWriteErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
