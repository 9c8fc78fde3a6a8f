package identity

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is Quill's canonical security principal.
// PasswordHash is the encoded password hash, never the plaintext, and is
// never serialized.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
}

// NewUser describes a credential to persist. The store assigns the id.
type NewUser struct {
	Username     string
	PasswordHash string
	Now          time.Time
}

// Store is the credential persistence boundary.
//
// Contract:
//   - Insert assigns a fresh id and rejects a taken username with ConflictError{Field: "username"}.
//     Uniqueness is enforced atomically by the store, not by a prior lookup.
//   - FindByUsername matches exactly (case-sensitive).
//   - Lookups of absent users return NotFoundError.
type Store interface {
	Insert(ctx context.Context, in NewUser) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id ulid.ULID) (User, error)
}
