package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate checks plain against the policy bounds. Lengths count runes.
func (c Config) Validate(plain string) error {
	n := utf8.RuneCountInString(plain)
	switch {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	case c.Policy.RejectVeryWeak && looksVeryWeak(plain):
		return ErrWeakPassword
	}
	return nil
}

// trivialPasswords are rejected outright when RejectVeryWeak is set.
var trivialPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"qwerty":      {},
	"qwerty123":   {},
	"letmein":     {},
	"abcdef":      {},
	"abc123":      {},
	"iloveyou":    {},
}

// looksVeryWeak catches the handful of patterns nobody should be allowed to
// register with. It is not a strength estimator.
func looksVeryWeak(plain string) bool {
	s := strings.TrimSpace(plain)
	if s == "" {
		return true
	}
	if _, ok := trivialPasswords[strings.ToLower(s)]; ok {
		return true
	}
	return singleRune(s) || digitRun(s)
}

// singleRune reports whether s repeats one character.
func singleRune(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

// digitRun reports whether s is all digits and ascending or descending by one,
// e.g. "123456" or "987654".
func digitRun(s string) bool {
	var prev rune
	step := 0
	for i, r := range s {
		if !unicode.IsDigit(r) || r > '9' {
			return false
		}
		if i == 0 {
			prev = r
			continue
		}
		d := int(r - prev)
		if d != 1 && d != -1 {
			return false
		}
		if step != 0 && d != step {
			return false
		}
		step = d
		prev = r
	}
	return step != 0
}
