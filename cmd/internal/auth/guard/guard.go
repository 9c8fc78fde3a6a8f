// Package guard authenticates requests from the session cookie.
package guard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"quill/cmd/internal/auth/session"
)

// DefaultCookieName is the cookie the browser client sends the session token in.
const DefaultCookieName = "token"

// ErrUnauthenticated is returned when the request carries no session token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Guard extracts and verifies the session token of a request.
// It has no side effects and never writes to the response.
type Guard struct {
	cookieName string
	tokens     session.Verifier
	now        func() time.Time
}

// New builds a Guard reading cookieName (DefaultCookieName when empty).
func New(tokens session.Verifier, cookieName string) *Guard {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Guard{
		cookieName: cookieName,
		tokens:     tokens,
		now:        time.Now,
	}
}

// CookieName returns the cookie the guard reads.
func (g *Guard) CookieName() string { return g.cookieName }

// Authenticate returns the verified claims of r.
//
// A missing or empty cookie is ErrUnauthenticated. A present but unverifiable
// token is session.ErrInvalidToken.
func (g *Guard) Authenticate(r *http.Request) (session.Claims, error) {
	c, err := r.Cookie(g.cookieName)
	if err != nil || c.Value == "" {
		return session.Claims{}, ErrUnauthenticated
	}
	claims, err := g.tokens.Verify(c.Value, g.now())
	if err != nil {
		return session.Claims{}, session.ErrInvalidToken
	}
	return claims, nil
}

// Require wraps next so it only runs for authenticated requests. The verified
// claims are available to next via FromContext. Failures go to onError.
func (g *Guard) Require(onError func(http.ResponseWriter, *http.Request, error), next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Authenticate(r)
		if err != nil {
			onError(w, r, err)
			return
		}
		next(w, r.WithContext(NewContext(r.Context(), claims)))
	}
}

type claimsKey struct{}

// NewContext returns ctx carrying claims.
func NewContext(ctx context.Context, claims session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext returns the claims stored by Require, if any.
func FromContext(ctx context.Context) (session.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(session.Claims)
	return c, ok
}
