package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/meeting-room-booking/internal/model"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
	"github.com/iliyamo/meeting-room-booking/internal/utils"
)

// Registration is the input of Users.Register.
type Registration struct {
	Username string
	Email    string
	Password string
	Name     *string
	Admin    bool
}

// Users registers and authenticates users.
type Users struct {
	log        *slog.Logger
	users      repository.UserStore
	bcryptCost int
}

func NewUsers(log *slog.Logger, users repository.UserStore, bcryptCost int) *Users {
	return &Users{log: log, users: users, bcryptCost: bcryptCost}
}

// Register creates a user.  Duplicate usernames or emails yield
// ErrAlreadyExists.
func (s *Users) Register(ctx context.Context, in Registration) (model.User, error) {
	const op = "service.Users.Register"
	u := model.User{
		Name:     in.Name,
		Username: strings.TrimSpace(in.Username),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		IsAdmin:  in.Admin,
	}
	if u.Username == "" {
		return model.User{}, fmt.Errorf("%s: %w", op, invalid("username", "required"))
	}
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return model.User{}, fmt.Errorf("%s: %w", op, invalid("email", "invalid"))
	}
	if in.Password == "" {
		return model.User{}, fmt.Errorf("%s: %w", op, invalid("password", "required"))
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	u.PasswordHash = hash

	if err := s.users.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.String("op", op), slog.Uint64("user_id", u.ID), slog.Bool("admin", u.IsAdmin))
	return u, nil
}

// Authenticate checks a username/password pair.
func (s *Users) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	const op = "service.Users.Authenticate"
	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		s.log.Info("failed login", slog.String("op", op), slog.Uint64("user_id", u.ID))
		return model.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	return u, nil
}

func (s *Users) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("service.Users.Get: %w", storageErr(err))
	}
	return u, nil
}
