package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	st, err := NewPostgresStore(mock)
	require.NoError(t, err)
	return st, mock
}

func TestPostgresStore_Insert(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO "quill"."users"`).
		WithArgs(pgxmock.AnyArg(), "alice", "$argon2id$fake", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	u, err := st.Insert(context.Background(), NewUser{Username: "alice", PasswordHash: "$argon2id$fake", Now: now})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotZero(t, u.ID)
	assert.Equal(t, now, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_DuplicateUsername(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "quill"."users"`).
		WithArgs(pgxmock.AnyArg(), "alice", "h", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "uq_users_username"})

	_, err := st.Insert(context.Background(), NewUser{Username: "alice", PasswordHash: "h"})
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var ce ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "username", ce.Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_RejectsShortUsername(t *testing.T) {
	st, mock := newMockStore(t)

	_, err := st.Insert(context.Background(), NewUser{Username: "bob", PasswordHash: "h"})
	assert.True(t, IsInvalidInput(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_StorageFailure(t *testing.T) {
	st, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(`INSERT INTO "quill"."users"`).
		WithArgs(pgxmock.AnyArg(), "alice", "h", pgxmock.AnyArg()).
		WillReturnError(boom)

	_, err := st.Insert(context.Background(), NewUser{Username: "alice", PasswordHash: "h"})
	require.ErrorIs(t, err, boom)
	assert.False(t, IsConflict(err))
}

func TestPostgresStore_FindByUsername(t *testing.T) {
	st, mock := newMockStore(t)
	id, err := NewULID(time.Now())
	require.NoError(t, err)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, username, password_hash, created_at`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
			AddRow(id.String(), "alice", "$argon2id$fake", created))

	u, err := st.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "$argon2id$fake", u.PasswordHash)
	assert.Equal(t, created, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByUsername_NotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, username, password_hash, created_at`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.FindByUsername(context.Background(), "ghost")
	assert.True(t, IsNotFound(err))
}

func TestPostgresStore_FindByID_CorruptID(t *testing.T) {
	st, mock := newMockStore(t)
	id, err := NewULID(time.Now())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, username, password_hash, created_at`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
			AddRow("not-a-ulid", "alice", "h", time.Now()))

	_, err = st.FindByID(context.Background(), id)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestNewPostgresStore(t *testing.T) {
	_, err := NewPostgresStore(nil)
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st, err := NewPostgresStore(mock)
	require.NoError(t, err)
	assert.Equal(t, `"quill"."users"`, st.users)
}

func TestPGClassifyUniqueViolation(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantField string
		wantOK    bool
	}{
		{"username constraint", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "uq_users_username"}, "username", true},
		{"other unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "posts_pkey"}, "unique", true},
		{"fk violation", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, "", false},
		{"not pg", errors.New("x"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			field, ok := PGClassifyUniqueViolation(tc.err)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantField, field)
		})
	}
}
