package content

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/cmd/identity"
)

func TestMemoryStore_WithAuthorsResolvesUser(t *testing.T) {
	ctx := context.Background()
	users := identity.NewMemoryStore()
	alice, err := users.Insert(ctx, identity.NewUser{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)

	st := NewMemoryStore(WithAuthors(users))

	p, err := st.Insert(ctx, NewPost{Draft: Draft{Title: "t"}, AuthorID: alice.ID, AuthorName: "stale"})
	require.NoError(t, err)
	assert.Equal(t, "alice", p.AuthorName)

	got, err := st.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.AuthorName)
}

func TestMemoryStore_WithAuthorsRejectsUnknownAuthor(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(WithAuthors(identity.NewMemoryStore()))

	_, err := st.Insert(ctx, NewPost{Draft: Draft{Title: "t"}, AuthorID: ulid.Make(), AuthorName: "ghost"})
	require.ErrorIs(t, err, ErrInvalidInput)

	posts, err := st.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestMemoryStore_WithoutAuthorsKeepsGivenName(t *testing.T) {
	p, err := NewMemoryStore().Insert(context.Background(), NewPost{Draft: Draft{Title: "t"}, AuthorID: ulid.Make(), AuthorName: "bob1"})
	require.NoError(t, err)
	assert.Equal(t, "bob1", p.AuthorName)
}
