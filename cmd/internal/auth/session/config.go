package session

import (
	"time"

	"quill/cmd/security/token"
)

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// Secret is the HS256 signing key. At least token.MinSecretBytes long.
	Secret []byte

	// Issuer is the value set in, and required of, the "iss" claim.
	// Empty disables the issuer check.
	Issuer string

	// TTL bounds token lifetime. Zero issues tokens without an "exp" claim,
	// which then stay valid until the secret is rotated.
	TTL time.Duration

	// ClockSkew is the leeway applied to time-based claims during verification.
	ClockSkew time.Duration
}

// DefaultConfig returns defaults without a secret; callers must set Secret.
func DefaultConfig() Config {
	return Config{
		Issuer:    "quill",
		ClockSkew: 30 * time.Second,
	}
}

// Validate reports ErrConfig when the configuration cannot produce safe tokens.
func (c Config) Validate() error {
	if len(c.Secret) < token.MinSecretBytes {
		return ErrConfig
	}
	if c.TTL < 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	return nil
}
