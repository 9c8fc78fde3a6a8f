package api

import (
	"net/http"
	"strings"
	"time"
)

// Config controls API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Failed logins allowed per client IP within LoginWindow before 429.
	LoginMax    int
	LoginWindow time.Duration

	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// DefaultConfig returns safe defaults for local development.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   1 << 20, // 1 MiB
		LoginMax:       20,
		LoginWindow:    5 * time.Minute,
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
	}
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.LoginMax <= 0 {
		c.LoginMax = def.LoginMax
	}
	if c.LoginWindow <= 0 {
		c.LoginWindow = def.LoginWindow
	}
	if strings.TrimSpace(c.CookiePath) == "" {
		c.CookiePath = def.CookiePath
	}
	if c.CookieSameSite == 0 {
		c.CookieSameSite = def.CookieSameSite
	}
	return c
}

// ParseSameSite maps "lax", "strict" and "none" to http.SameSite; anything else is Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
