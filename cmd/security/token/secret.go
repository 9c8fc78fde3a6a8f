package token

import (
	"os"
	"strings"
)

const (
	// SecretEnvKey is the env var name for the session signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "QUILL_SESSION_SECRET"

	// MinSecretBytes is the smallest accepted HS256 key.
	MinSecretBytes = 32
)

// SecretFromEnv returns the configured signing secret (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSecretMissing.
// If too short -> ErrSecretTooShort.
func SecretFromEnv(minBytes int) ([]byte, error) {
	return CheckSecret(os.Getenv(SecretEnvKey), minBytes)
}

// CheckSecret applies the same rules as SecretFromEnv to an explicit value.
func CheckSecret(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSecretMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSecretTooShort
	}
	return b, nil
}
