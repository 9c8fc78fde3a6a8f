package identity

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"quill/cmd/security/password"
)

const (
	UsernameMinLength = 4
	UsernameMaxLength = 64
)

// ValidateUsername enforces the username schema rules.
func ValidateUsername(op, username string) error {
	n := utf8.RuneCountInString(username)
	if n < UsernameMinLength {
		return pgInvalid(op, fmt.Sprintf("username must be at least %d characters", UsernameMinLength))
	}
	if n > UsernameMaxLength {
		return pgInvalid(op, fmt.Sprintf("username must be at most %d characters", UsernameMaxLength))
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return pgInvalid(op, "username contains control characters")
		}
	}
	return nil
}

// ValidateCredentials checks a registration request against the schema rules
// before any hashing work is spent on it.
func ValidateCredentials(username, plain string, policy password.Config) error {
	const op = "identity.ValidateCredentials"

	if err := ValidateUsername(op, username); err != nil {
		return err
	}

	switch err := policy.Validate(plain); {
	case err == nil:
		return nil
	case errors.Is(err, password.ErrPasswordTooShort):
		return pgInvalid(op, fmt.Sprintf("password must be at least %d characters", policy.Policy.MinLength))
	case errors.Is(err, password.ErrPasswordTooLong):
		return pgInvalid(op, fmt.Sprintf("password must be at most %d characters", policy.Policy.MaxLength))
	default:
		return pgInvalid(op, err.Error())
	}
}
