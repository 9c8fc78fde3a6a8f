package token

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretMissing  = errors.New("session signing secret missing")
	ErrSecretTooShort = errors.New("session signing secret too short")
)
