package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is a dev-only fallback when no database is configured.
// Uniqueness is enforced under the same lock as the insert, so concurrent
// registrations of one username produce exactly one winner.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]User
	byUsername map[string]ulid.ULID
}

// NewMemoryStore constructs an in-memory Store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[ulid.ULID]User),
		byUsername: make(map[string]ulid.ULID),
	}
}

// Insert stores a new user, rejecting a taken username.
func (s *MemoryStore) Insert(ctx context.Context, in NewUser) (User, error) {
	const op = "identity.Insert"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := ValidateUsername(op, in.Username); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, pgInvalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[in.Username]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	u := User{
		ID:           id,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}
	s.byID[id] = u
	s.byUsername[in.Username] = id
	return u, nil
}

// FindByUsername returns the user with exactly this username.
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return User{}, NotFoundError{Op: "identity.FindByUsername", Resource: "user"}
	}
	return s.byID[id], nil
}

// FindByID returns the user with this id.
func (s *MemoryStore) FindByID(ctx context.Context, id ulid.ULID) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.FindByID", Resource: "user"}
	}
	return u, nil
}
