package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"quill/cmd/internal/auth/ownership"
	"quill/cmd/internal/auth/session"
	"quill/cmd/internal/metrics"
)

// Service applies the post rules on top of a Store.
type Service struct {
	log     *slog.Logger
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService builds a Service. m may be nil.
func NewService(log *slog.Logger, store Store, m *metrics.Metrics) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log, store: store, metrics: m, now: time.Now}
}

// Create stores a post authored by actor.
func (s *Service) Create(ctx context.Context, actor session.Claims, d Draft) (Post, error) {
	if err := d.Validate(); err != nil {
		s.metrics.PostMutation("create", "invalid_input")
		return Post{}, err
	}
	p, err := s.store.Insert(ctx, NewPost{
		Draft:      d,
		AuthorID:   actor.UserID,
		AuthorName: actor.Username,
		Now:        s.now().UTC(),
	})
	if err != nil {
		s.metrics.PostMutation("create", "error")
		return Post{}, err
	}
	s.metrics.PostMutation("create", "success")
	return p, nil
}

// Update replaces the editable fields of post id.
//
// The post is fetched first, so an absent id is ErrNotFound even for a
// non-owner or an invalid draft. Only the author may edit: anyone else gets
// ownership.ErrForbidden whatever the draft holds. The draft is judged last,
// and nothing is written on any failure.
func (s *Service) Update(ctx context.Context, actor session.Claims, id ulid.ULID, d Draft) (Post, error) {
	cur, err := s.store.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			s.metrics.PostMutation("update", "not_found")
		}
		return Post{}, err
	}

	if err := ownership.AuthorizeMutation(actor.UserID, cur.AuthorID); err != nil {
		s.metrics.PostMutation("update", "forbidden")
		s.log.Warn("content.update.forbidden",
			"post_id", id.String(),
			"actor_id", actor.UserID.String(),
		)
		return Post{}, err
	}

	if err := d.Validate(); err != nil {
		s.metrics.PostMutation("update", "invalid_input")
		return Post{}, err
	}

	next := d.apply(cur, s.now().UTC())
	if err := s.store.UpdateByID(ctx, next); err != nil {
		s.metrics.PostMutation("update", "error")
		return Post{}, err
	}
	s.metrics.PostMutation("update", "success")
	return next, nil
}

// Get returns one post.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (Post, error) {
	return s.store.FindByID(ctx, id)
}

// Latest returns the newest ListLimit posts.
func (s *Service) Latest(ctx context.Context) ([]Post, error) {
	return s.store.List(ctx, ListLimit)
}
