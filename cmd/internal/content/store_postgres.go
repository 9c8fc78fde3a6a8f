package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"

	"quill/cmd/identity"
	"quill/cmd/identity/ids"
)

// PostgresStore implements post persistence over PostgreSQL.
// The pool is owned by the caller.
type PostgresStore struct {
	db    identity.DB
	posts string
	users string
}

// NewPostgresStore builds a store over db in identity.Schema.
func NewPostgresStore(db identity.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("content: nil db")
	}
	return &PostgresStore{
		db:    db,
		posts: pgx.Identifier{identity.Schema, "posts"}.Sanitize(),
		users: pgx.Identifier{identity.Schema, "users"}.Sanitize(),
	}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, in NewPost) (Post, error) {
	const op = "content.Insert"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return Post{}, err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO `+s.posts+` (id, title, summary, content, cover, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id.String(), in.Title, in.Summary, in.Content, in.Cover, in.AuthorID.String(), now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return Post{}, fmt.Errorf("%s: %w: unknown author", op, ErrInvalidInput)
		}
		return Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return Post{
		ID:         id,
		Title:      in.Title,
		Summary:    in.Summary,
		Content:    in.Content,
		Cover:      in.Cover,
		AuthorID:   in.AuthorID,
		AuthorName: in.AuthorName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *PostgresStore) selectPosts() string {
	return `SELECT p.id, p.title, p.summary, p.content, p.cover, p.author_id, u.username, p.created_at, p.updated_at
	          FROM ` + s.posts + ` p
	          JOIN ` + s.users + ` u ON u.id = p.author_id`
}

func (s *PostgresStore) FindByID(ctx context.Context, id ulid.ULID) (Post, error) {
	const op = "content.FindByID"

	row := s.db.QueryRow(ctx, s.selectPosts()+` WHERE p.id = $1`, id.String())
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateByID(ctx context.Context, p Post) error {
	const op = "content.UpdateByID"

	tag, err := s.db.Exec(ctx,
		`UPDATE `+s.posts+`
		    SET title = $2, summary = $3, content = $4, cover = $5, updated_at = $6
		  WHERE id = $1`,
		p.ID.String(), p.Title, p.Summary, p.Content, p.Cover, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Post, error) {
	const op = "content.List"

	if limit <= 0 {
		limit = ListLimit
	}
	rows, err := s.db.Query(ctx, s.selectPosts()+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanPost(row pgx.Row) (Post, error) {
	var (
		p                Post
		rawID, rawAuthor string
	)
	if err := row.Scan(&rawID, &p.Title, &p.Summary, &p.Content, &p.Cover, &rawAuthor, &p.AuthorName, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Post{}, err
	}
	id, err := ids.Parse(rawID)
	if err != nil {
		return Post{}, fmt.Errorf("corrupt post id %q: %w", rawID, err)
	}
	author, err := ids.Parse(rawAuthor)
	if err != nil {
		return Post{}, fmt.Errorf("corrupt author id %q: %w", rawAuthor, err)
	}
	p.ID = id
	p.AuthorID = author
	return p, nil
}
