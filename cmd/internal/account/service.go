// Package account implements the registration and login flows.
//
// Register validates, hashes and stores a credential. Login looks the user
// up, compares the password and issues a session token. Both failure paths of
// Login (unknown user, wrong password) are indistinguishable to the caller.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quill/cmd/identity"
	"quill/cmd/internal/auth/session"
	"quill/cmd/internal/metrics"
	"quill/cmd/security/password"
)

// ErrInvalidCredentials is the single error for every failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Hasher hashes and compares passwords off the request goroutine.
type Hasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Compare(ctx context.Context, plain, encoded string) (bool, error)
}

// TokenIssuer signs session claims.
type TokenIssuer interface {
	Issue(c session.Claims) (string, error)
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User  identity.User
	Token string
}

// Service runs the account flows.
type Service struct {
	log     *slog.Logger
	users   identity.Store
	hasher  Hasher
	tokens  TokenIssuer
	policy  password.Config
	metrics *metrics.Metrics
	now     func() time.Time

	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records attempt outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPolicy overrides the password length policy.
func WithPolicy(p password.Config) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides the time source used for token issue times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a Service. It computes a dummy hash up front so logins
// for unknown users cost the same as logins with a wrong password.
func NewService(ctx context.Context, log *slog.Logger, users identity.Store, hasher Hasher, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil || hasher == nil || tokens == nil {
		return nil, errors.New("account: nil dependency")
	}

	s := &Service{
		log:    log,
		users:  users,
		hasher: hasher,
		tokens: tokens,
		policy: password.DefaultConfig(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	dummy, err := hasher.Hash(ctx, "dummy-password-for-timing-only")
	if err != nil {
		return nil, fmt.Errorf("account: dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Register creates a new account.
//
// Errors: identity.ErrInvalidInput for schema violations, identity.ConflictError
// for a taken username, anything else is a storage or entropy failure.
// Nothing is persisted on failure.
func (s *Service) Register(ctx context.Context, username, plain string) (identity.User, error) {
	const op = "register"

	if err := identity.ValidateCredentials(username, plain, s.policy); err != nil {
		s.metrics.AuthAttempt(op, "invalid_input")
		return identity.User{}, err
	}

	hash, err := s.hasher.Hash(ctx, plain)
	if err != nil {
		s.metrics.AuthAttempt(op, "error")
		return identity.User{}, fmt.Errorf("account.Register: hash: %w", err)
	}

	u, err := s.users.Insert(ctx, identity.NewUser{
		Username:     username,
		PasswordHash: hash,
		Now:          s.now().UTC(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			s.metrics.AuthAttempt(op, "duplicate")
		case identity.IsInvalidInput(err):
			s.metrics.AuthAttempt(op, "invalid_input")
		default:
			s.metrics.AuthAttempt(op, "error")
		}
		return identity.User{}, err
	}

	s.metrics.AuthAttempt(op, "success")
	s.log.Info("account.register.ok", "user_id", u.ID.String())
	return u, nil
}

// Login verifies credentials and issues a session token.
//
// An unknown username and a wrong password both return ErrInvalidCredentials
// after one password comparison each.
func (s *Service) Login(ctx context.Context, username, plain string) (LoginResult, error) {
	const op = "login"

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !identity.IsNotFound(err) {
			s.metrics.AuthAttempt(op, "error")
			return LoginResult{}, fmt.Errorf("account.Login: lookup: %w", err)
		}
		if _, cerr := s.hasher.Compare(ctx, plain, s.dummyHash); cerr != nil {
			return LoginResult{}, cerr
		}
		s.metrics.AuthAttempt(op, "invalid_credentials")
		return LoginResult{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Compare(ctx, plain, u.PasswordHash)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		s.metrics.AuthAttempt(op, "invalid_credentials")
		return LoginResult{}, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(session.Claims{
		UserID:   u.ID,
		Username: u.Username,
		IssuedAt: s.now().UTC().Truncate(time.Second),
	})
	if err != nil {
		s.metrics.AuthAttempt(op, "error")
		return LoginResult{}, fmt.Errorf("account.Login: issue token: %w", err)
	}

	s.metrics.AuthAttempt(op, "success")
	return LoginResult{User: u, Token: tok}, nil
}
