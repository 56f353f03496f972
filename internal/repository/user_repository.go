package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/meeting-room-booking/internal/model"
)

// UserRepo persists rows of the 'usuarios' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, nome, username, email, hashed_password, admin, created_at"

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		name sql.NullString
	)
	if err := s.Scan(&u.ID, &name, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if name.Valid {
		n := name.String
		u.Name = &n
	}
	return u, nil
}

// CreateUser inserts u with an already hashed password and fills in the
// generated ID and created_at.  Email is stored lower-cased.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.TrimSpace(u.Username)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO usuarios (nome, username, email, hashed_password, admin) VALUES (?,?,?,?,?)",
		u.Name, u.Username, u.Email, u.PasswordHash, u.IsAdmin)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetUserByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*u = created
	return nil
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM usuarios WHERE id=? LIMIT 1", id))
}

// GetUserByUsername fetches a user by login name.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM usuarios WHERE username=? LIMIT 1", strings.TrimSpace(username)))
}

// ListNonAdminUsers returns every user that may be invited to a
// reservation, ordered by username.
func (r *UserRepo) ListNonAdminUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM usuarios WHERE admin = FALSE ORDER BY username ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
