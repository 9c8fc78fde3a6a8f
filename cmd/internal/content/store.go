package content

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Store is the post persistence boundary.
//
// Contract:
//   - Insert assigns the id.
//   - FindByID and UpdateByID return ErrNotFound for an absent id.
//   - UpdateByID writes the editable fields and UpdatedAt; it never changes AuthorID.
//   - List returns at most limit posts ordered newest first.
type Store interface {
	Insert(ctx context.Context, in NewPost) (Post, error)
	FindByID(ctx context.Context, id ulid.ULID) (Post, error)
	UpdateByID(ctx context.Context, p Post) error
	List(ctx context.Context, limit int) ([]Post, error)
}
