package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/meeting-room-booking/internal/model"
)

// RoomRepo persists rows of the 'salas' table.
type RoomRepo struct{ DB *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{DB: db} }

const roomColumns = "id, nome, local, capacidade, descricao, criador_id, ativa, created_at, updated_at"

func scanRoom(s rowScanner) (model.Room, error) {
	var (
		room model.Room
		capa sql.NullInt64
		desc sql.NullString
	)
	if err := s.Scan(&room.ID, &room.Name, &room.Location, &capa, &desc,
		&room.CreatorID, &room.IsActive, &room.CreatedAt, &room.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, ErrNotFound
		}
		return model.Room{}, err
	}
	if capa.Valid {
		c := uint32(capa.Int64)
		room.Capacity = &c
	}
	if desc.Valid {
		d := desc.String
		room.Description = &d
	}
	return room, nil
}

// CreateRoom inserts room and reloads it so the ID and timestamps are set.
func (r *RoomRepo) CreateRoom(ctx context.Context, room *model.Room) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO salas (nome, local, capacidade, descricao, criador_id, ativa) VALUES (?,?,?,?,?,?)",
		strings.TrimSpace(room.Name), strings.TrimSpace(room.Location), room.Capacity, room.Description,
		room.CreatorID, room.IsActive)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetRoom(ctx, uint64(id))
	if err != nil {
		return err
	}
	*room = created
	return nil
}

// GetRoom returns the room or ErrNotFound.
func (r *RoomRepo) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	return scanRoom(r.DB.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM salas WHERE id=?", id))
}

// ListRooms lists rooms ordered by name.
func (r *RoomRepo) ListRooms(ctx context.Context, f RoomFilter) ([]model.Room, error) {
	var (
		conds []string
		args  []any
	)
	if f.CreatorID != 0 {
		conds = append(conds, "criador_id = ?")
		args = append(args, f.CreatorID)
	}
	if f.OnlyActive {
		conds = append(conds, "ativa = TRUE")
	}
	q := "SELECT " + roomColumns + " FROM salas"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " ORDER BY nome ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// UpdateRoom overwrites the mutable columns of room and reloads it.
func (r *RoomRepo) UpdateRoom(ctx context.Context, room *model.Room) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE salas SET nome=?, local=?, capacidade=?, descricao=?, ativa=?, updated_at=UTC_TIMESTAMP()
         WHERE id=?`,
		strings.TrimSpace(room.Name), strings.TrimSpace(room.Location), room.Capacity, room.Description,
		room.IsActive, room.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	updated, err := r.GetRoom(ctx, room.ID)
	if err != nil {
		return err
	}
	*room = updated
	return nil
}

// DeleteRoom removes the room.  The FK from reservas.sala_id is RESTRICT,
// so a room with reservations fails with ErrInUse.
func (r *RoomRepo) DeleteRoom(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM salas WHERE id=?", id)
	if err != nil {
		return mapWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
