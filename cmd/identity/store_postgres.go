package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"

	"quill/cmd/identity/ids"
)

// DB is the subset of pgx used by the store.
// *pgxpool.Pool, pgx.Tx and pgxmock pools all satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Schema is the PostgreSQL schema the bundled migrations create. The stores
// are bound to it because the migration files name it literally.
const Schema = "quill"

// PostgresStore implements credential persistence over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Table identifiers are quoted through pgx.Identifier.
//   - Username uniqueness is the uq_users_username constraint; violations map to ConflictError.
type PostgresStore struct {
	db    DB
	users string
}

// NewPostgresStore constructs a PostgresStore over db.
func NewPostgresStore(db DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return &PostgresStore{db: db, users: pgIdent(Schema, "users")}, nil
}

// Insert creates a user row. The id is generated here, not by the caller.
func (s *PostgresStore) Insert(ctx context.Context, in NewUser) (User, error) {
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

	_, err = s.db.Exec(ctx,
		`INSERT INTO `+s.users+` (id, username, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		id.String(), in.Username, in.PasswordHash, now,
	)
	if err != nil {
		if field, ok := PGClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	return User{
		ID:           id,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}, nil
}

// FindByUsername returns the user with exactly this username.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (User, error) {
	const op = "identity.FindByUsername"

	row := s.db.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at
		   FROM `+s.users+`
		  WHERE username = $1`,
		username,
	)
	return scanUser(op, row)
}

// FindByID returns the user with this id.
func (s *PostgresStore) FindByID(ctx context.Context, id ulid.ULID) (User, error) {
	const op = "identity.FindByID"

	row := s.db.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at
		   FROM `+s.users+`
		  WHERE id = $1`,
		id.String(),
	)
	return scanUser(op, row)
}

func scanUser(op string, row pgx.Row) (User, error) {
	var (
		out   User
		rawID string
	)
	if err := row.Scan(&rawID, &out.Username, &out.PasswordHash, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	id, err := ids.Parse(rawID)
	if err != nil {
		return User{}, fmt.Errorf("%s: corrupt id %q: %w", op, rawID, err)
	}
	out.ID = id
	return out, nil
}

// ---- helpers ----

// pgInvalid standardizes invalid input errors.
func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

// PGClassifyUniqueViolation maps a unique_violation to a logical field name.
func PGClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != pgerrcode.UniqueViolation {
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_users_username":
		return "username", true
	default:
		if strings.Contains(c, "username") {
			return "username", true
		}
		return "unique", true
	}
}
