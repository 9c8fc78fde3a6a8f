package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"quill/cmd/identity"
	"quill/cmd/identity/ids"
)

// AuthorLookup resolves the user a post is attributed to.
type AuthorLookup interface {
	FindByID(ctx context.Context, id ulid.ULID) (identity.User, error)
}

// MemoryStore is a dev-only fallback when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	posts   map[ulid.ULID]Post
	authors AuthorLookup
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithAuthors makes Insert resolve the author through users, as the Postgres
// store does with its foreign key and join: an unknown author is
// ErrInvalidInput and the stored name is the account's username.
func WithAuthors(users AuthorLookup) MemoryOption {
	return func(s *MemoryStore) { s.authors = users }
}

// NewMemoryStore constructs an in-memory Store implementation.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{posts: make(map[ulid.ULID]Post)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Insert(ctx context.Context, in NewPost) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	authorName := in.AuthorName
	if s.authors != nil {
		u, err := s.authors.FindByID(ctx, in.AuthorID)
		switch {
		case identity.IsNotFound(err):
			return Post{}, fmt.Errorf("content.Insert: %w: unknown author", ErrInvalidInput)
		case err != nil:
			return Post{}, fmt.Errorf("content.Insert: author: %w", err)
		}
		authorName = u.Username
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return Post{}, err
	}

	p := Post{
		ID:         id,
		Title:      in.Title,
		Summary:    in.Summary,
		Content:    in.Content,
		Cover:      in.Cover,
		AuthorID:   in.AuthorID,
		AuthorName: authorName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.posts[id] = p
	s.mu.Unlock()
	return p, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id ulid.ULID) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpdateByID(ctx context.Context, p Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.posts[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Title = p.Title
	cur.Summary = p.Summary
	cur.Content = p.Content
	cur.Cover = p.Cover
	cur.UpdatedAt = p.UpdatedAt
	s.posts[p.ID] = cur
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Compare(out[j].ID) > 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
