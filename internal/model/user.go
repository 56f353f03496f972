package model

import "time"

// Role names carried in access tokens.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User represents an application user record as stored in the
// `usuarios` table.  Administrators manage rooms and can never be invited
// to a reservation.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – optional display name.
//	Username     – unique login name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	IsAdmin      – administrator flag.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // usuarios.id
	Name         *string   // usuarios.nome (nullable)
	Username     string    // usuarios.username
	Email        string    // usuarios.email
	PasswordHash string    // usuarios.hashed_password
	IsAdmin      bool      // usuarios.admin
	CreatedAt    time.Time // usuarios.created_at
}

// Role returns the token role for the user.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
