package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"quill/cmd/internal/api"
	"quill/cmd/security/token"
)

// ValidateSecurityConfig enforces Quill's security policy at startup and
// returns the session signing secret.
//
// Fail-fast: the server never starts with a missing or short secret.
func ValidateSecurityConfig(cfg Config) ([]byte, error) {
	secret, err := token.SecretFromEnv(token.MinSecretBytes)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrSecretMissing):
			return nil, fmt.Errorf("security policy: %s is missing", token.SecretEnvKey)
		case errors.Is(err, token.ErrSecretTooShort):
			return nil, fmt.Errorf("security policy: %s is too short (min %d bytes)", token.SecretEnvKey, token.MinSecretBytes)
		default:
			return nil, err
		}
	}

	// Browsers drop SameSite=None cookies that are not Secure.
	if api.ParseSameSite(cfg.CookieSameSite) == http.SameSiteNoneMode && !cfg.CookieSecure {
		return nil, errors.New("security policy: cookie-samesite=none requires cookie-secure=true")
	}

	if cfg.CORSAllowCredentials {
		for _, o := range cfg.CORSAllowedOrigins {
			if strings.TrimSpace(o) == "*" {
				return nil, errors.New("security policy: cors-allowed-origins=* cannot be combined with credentials")
			}
		}
	}

	return secret, nil
}
