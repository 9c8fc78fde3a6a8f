package session

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Claims is the identity envelope carried by a session token.
type Claims struct {
	UserID   ulid.ULID
	Username string
	IssuedAt time.Time
}

// Verifier checks a presented token.
type Verifier interface {
	Verify(token string, now time.Time) (Claims, error)
}

// wireClaims is the JSON payload: {"username","id","iat"[,"exp","iss"]}.
type wireClaims struct {
	Username string `json:"username"`
	UserID   string `json:"id"`
	jwtlib.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
}

// NewTokenService validates cfg and builds a TokenService.
// The secret is copied so later mutation by the caller has no effect.
func NewTokenService(cfg Config) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenService{
		secret:    secret,
		issuer:    cfg.Issuer,
		ttl:       cfg.TTL,
		clockSkew: cfg.ClockSkew,
	}, nil
}

// TTL returns the configured token lifetime (zero means no expiry).
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs c. A zero IssuedAt is replaced with the current time.
// Timestamps are carried at second precision.
func (s *TokenService) Issue(c Claims) (string, error) {
	iat := c.IssuedAt
	if iat.IsZero() {
		iat = time.Now()
	}

	wc := wireClaims{
		Username: c.Username,
		UserID:   c.UserID.String(),
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:   s.issuer,
			IssuedAt: jwtlib.NewNumericDate(iat),
		},
	}
	if s.ttl > 0 {
		wc.ExpiresAt = jwtlib.NewNumericDate(iat.Add(s.ttl))
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, wc).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks the signature and claims of raw as of now.
// Every failure is reported as ErrInvalidToken.
func (s *TokenService) Verify(raw string, now time.Time) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return now }),
		jwtlib.WithLeeway(s.clockSkew),
		jwtlib.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}
	if s.ttl > 0 {
		opts = append(opts, jwtlib.WithExpirationRequired())
	}

	var wc wireClaims
	tok, err := jwtlib.ParseWithClaims(raw, &wc, func(*jwtlib.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}

	id, err := ulid.ParseStrict(wc.UserID)
	if err != nil || wc.Username == "" || wc.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		UserID:   id,
		Username: wc.Username,
		IssuedAt: wc.IssuedAt.Time.UTC(),
	}, nil
}

// IsInvalidToken reports whether err represents ErrInvalidToken.
func IsInvalidToken(err error) bool { return errors.Is(err, ErrInvalidToken) }
