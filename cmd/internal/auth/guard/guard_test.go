package guard

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/cmd/internal/auth/session"
)

func newTokens(t *testing.T) *session.TokenService {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Secret = []byte("0123456789abcdef0123456789abcdef")
	s, err := session.NewTokenService(cfg)
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	tokens := newTokens(t)
	g := New(tokens, "")

	want := session.Claims{
		UserID:   ulid.Make(),
		Username: "alice",
		IssuedAt: time.Now().UTC().Truncate(time.Second),
	}
	tok, err := tokens.Issue(want)
	require.NoError(t, err)

	t.Run("valid cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/profile", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: tok})
		got, err := g.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("no cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/profile", nil)
		_, err := g.Authenticate(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("empty cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/profile", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: ""})
		_, err := g.Authenticate(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("other cookie name ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/profile", nil)
		r.AddCookie(&http.Cookie{Name: "session", Value: tok})
		_, err := g.Authenticate(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("garbage token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/profile", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
		_, err := g.Authenticate(r)
		assert.ErrorIs(t, err, session.ErrInvalidToken)
	})
}

func TestRequire(t *testing.T) {
	tokens := newTokens(t)
	g := New(tokens, "sid")

	tok, err := tokens.Issue(session.Claims{UserID: ulid.Make(), Username: "alice"})
	require.NoError(t, err)

	var gotErr error
	onError := func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusTeapot)
	}
	h := g.Require(onError, func(w http.ResponseWriter, r *http.Request) {
		c, ok := FromContext(r.Context())
		if !ok || c.Username != "alice" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: tok})
	rec := httptest.NewRecorder()
	h(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, errors.Is(gotErr, ErrUnauthenticated))
}

func TestFromContext_Empty(t *testing.T) {
	_, ok := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
