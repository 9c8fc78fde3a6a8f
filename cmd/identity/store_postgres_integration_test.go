//go:build integration

package identity_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/cmd/identity"
	"quill/cmd/internal/schema/schematest"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	pool, _ := schematest.Start(t)
	st, err := identity.NewPostgresStore(pool)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	u, err := st.Insert(ctx, identity.NewUser{Username: "Navid", PasswordHash: "$argon2id$x"})
	require.NoError(t, err)

	got, err := st.FindByUsername(ctx, "Navid")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = st.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Navid", got.Username)

	// Case-sensitive: a differently cased name is a distinct account.
	_, err = st.Insert(ctx, identity.NewUser{Username: "nAvId", PasswordHash: "$argon2id$y"})
	require.NoError(t, err)

	_, err = st.Insert(ctx, identity.NewUser{Username: "Navid", PasswordHash: "$argon2id$z"})
	assert.True(t, identity.IsConflict(err), "got %v", err)
}

func TestPostgresStore_ConcurrentInsertSingleWinner(t *testing.T) {
	pool, _ := schematest.Start(t)
	st, err := identity.NewPostgresStore(pool)
	require.NoError(t, err)

	ctx := context.Background()
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Insert(ctx, identity.NewUser{Username: "racer", PasswordHash: "h"})
			switch {
			case err == nil:
				wins.Add(1)
			case identity.IsConflict(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), conflicts.Load())
}
