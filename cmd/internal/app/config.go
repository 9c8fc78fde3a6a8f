package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override, e.g. QUILL_HTTP_ADDR.
const EnvPrefix = "QUILL_"

// Config contains all runtime configuration.
//
// Sources, later wins: flag defaults, the YAML config file, flags set on the
// command line, QUILL_* environment variables.
type Config struct {
	HTTPAddr  string `koanf:"http-addr"`
	LogLevel  string `koanf:"log-level"`
	LogFormat string `koanf:"log-format"`

	ReadHeaderTimeout time.Duration `koanf:"read-header-timeout"`
	ReadTimeout       time.Duration `koanf:"read-timeout"`
	WriteTimeout      time.Duration `koanf:"write-timeout"`
	IdleTimeout       time.Duration `koanf:"idle-timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown-timeout"`
	MaxHeaderBytes    int           `koanf:"max-header-bytes"`

	// Empty selects in-memory stores.
	DatabaseURL      string `koanf:"database-url"`
	DBMaxConns       int32  `koanf:"db-max-conns"`
	DBMinConns       int32  `koanf:"db-min-conns"`
	DBConnectRetries int    `koanf:"db-connect-retries"`
	AutoMigrate      bool   `koanf:"auto-migrate"`

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool `koanf:"readiness-require-db"`

	CORSAllowedOrigins   []string `koanf:"cors-allowed-origins"`
	CORSAllowCredentials bool     `koanf:"cors-allow-credentials"`
	CORSMaxAgeSeconds    int      `koanf:"cors-max-age"`

	// Zero issues tokens without expiry.
	SessionTTL    time.Duration `koanf:"session-ttl"`
	SessionIssuer string        `koanf:"session-issuer"`

	CookieName     string `koanf:"cookie-name"`
	CookieSecure   bool   `koanf:"cookie-secure"`
	CookieSameSite string `koanf:"cookie-samesite"`
	TrustProxy     bool   `koanf:"trust-proxy"`

	MaxBodyBytes    int64         `koanf:"max-body-bytes"`
	LoginRateMax    int           `koanf:"login-rate-max"`
	LoginRateWindow time.Duration `koanf:"login-rate-window"`
	HashConcurrency int           `koanf:"hash-concurrency"`

	PasswordRejectWeak bool `koanf:"password-reject-weak"`
}

// RegisterFlags declares every config key on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", "0.0.0.0:4000", "listen address")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json, text, pretty")

	fs.Duration("read-header-timeout", 5*time.Second, "HTTP read header timeout")
	fs.Duration("read-timeout", 15*time.Second, "HTTP read timeout")
	fs.Duration("write-timeout", 15*time.Second, "HTTP write timeout")
	fs.Duration("idle-timeout", 60*time.Second, "HTTP idle timeout")
	fs.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown budget")
	fs.Int("max-header-bytes", 1<<20, "HTTP max header bytes")

	fs.String("database-url", "", "PostgreSQL URL; empty uses in-memory stores")
	fs.Int32("db-max-conns", 10, "max pool connections")
	fs.Int32("db-min-conns", 0, "min pool connections")
	fs.Int("db-connect-retries", 5, "connection attempts after the first before giving up")
	fs.Bool("auto-migrate", true, "apply pending migrations on start")
	fs.Bool("readiness-require-db", false, "fail /readyz without a reachable database")

	fs.StringSlice("cors-allowed-origins", []string{"http://localhost:3000"}, "allowed CORS origins; host:* matches any port")
	fs.Bool("cors-allow-credentials", true, "send Access-Control-Allow-Credentials")
	fs.Int("cors-max-age", 600, "preflight cache seconds")

	fs.Duration("session-ttl", 0, "session token lifetime; 0 issues tokens without expiry")
	fs.String("session-issuer", "quill", "session token issuer")

	fs.String("cookie-name", "token", "session cookie name")
	fs.Bool("cookie-secure", false, "mark the session cookie Secure")
	fs.String("cookie-samesite", "lax", "session cookie SameSite: lax, strict, none")
	fs.Bool("trust-proxy", false, "use X-Forwarded-For / X-Real-IP for client IPs")

	fs.Int64("max-body-bytes", 1<<20, "max JSON request body")
	fs.Int("login-rate-max", 20, "failed logins per IP per window before 429")
	fs.Duration("login-rate-window", 5*time.Minute, "failed login window")
	fs.Int("hash-concurrency", 0, "concurrent password hashes; 0 uses NumCPU")
	fs.Bool("password-reject-weak", false, "reject trivial passwords (password1, 123456, aaaaaa) at registration")
}

// LoadConfig resolves Config from fs (already parsed), the optional YAML file
// at path and the environment.
func LoadConfig(fs *pflag.FlagSet, path string) (Config, error) {
	k := koanf.New(".")

	if strings.TrimSpace(path) != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// Unchanged flags only fill keys the file left unset.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("config: load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.HTTPAddr = EnvString(EnvPrefix+"HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = EnvString(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.LogFormat = EnvString(EnvPrefix+"LOG_FORMAT", c.LogFormat)

	c.ReadHeaderTimeout = EnvDuration(EnvPrefix+"HTTP_READ_HEADER_TIMEOUT", c.ReadHeaderTimeout)
	c.ReadTimeout = EnvDuration(EnvPrefix+"HTTP_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = EnvDuration(EnvPrefix+"HTTP_WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = EnvDuration(EnvPrefix+"HTTP_IDLE_TIMEOUT", c.IdleTimeout)
	c.ShutdownTimeout = EnvDuration(EnvPrefix+"SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.MaxHeaderBytes = EnvInt(EnvPrefix+"HTTP_MAX_HEADER_BYTES", c.MaxHeaderBytes)

	c.DatabaseURL = EnvString(EnvPrefix+"DATABASE_URL", c.DatabaseURL)
	c.DBMaxConns = EnvInt32(EnvPrefix+"DB_MAX_CONNS", c.DBMaxConns)
	c.DBMinConns = EnvInt32(EnvPrefix+"DB_MIN_CONNS", c.DBMinConns)
	c.DBConnectRetries = EnvInt(EnvPrefix+"DB_CONNECT_RETRIES", c.DBConnectRetries)
	c.AutoMigrate = EnvBool(EnvPrefix+"AUTO_MIGRATE", c.AutoMigrate)
	c.ReadinessRequireDB = EnvBool(EnvPrefix+"READINESS_REQUIRE_DB", c.ReadinessRequireDB)

	c.CORSAllowedOrigins = EnvStringSlice(EnvPrefix+"CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.CORSAllowCredentials = EnvBool(EnvPrefix+"CORS_ALLOW_CREDENTIALS", c.CORSAllowCredentials)
	c.CORSMaxAgeSeconds = EnvInt(EnvPrefix+"CORS_MAX_AGE", c.CORSMaxAgeSeconds)

	c.SessionTTL = EnvDuration(EnvPrefix+"SESSION_TTL", c.SessionTTL)
	c.SessionIssuer = EnvString(EnvPrefix+"SESSION_ISSUER", c.SessionIssuer)

	c.CookieName = EnvString(EnvPrefix+"COOKIE_NAME", c.CookieName)
	c.CookieSecure = EnvBool(EnvPrefix+"COOKIE_SECURE", c.CookieSecure)
	c.CookieSameSite = EnvString(EnvPrefix+"COOKIE_SAMESITE", c.CookieSameSite)
	c.TrustProxy = EnvBool(EnvPrefix+"TRUST_PROXY", c.TrustProxy)

	c.MaxBodyBytes = EnvInt64(EnvPrefix+"MAX_BODY_BYTES", c.MaxBodyBytes)
	c.LoginRateMax = EnvInt(EnvPrefix+"LOGIN_RATE_MAX", c.LoginRateMax)
	c.LoginRateWindow = EnvDuration(EnvPrefix+"LOGIN_RATE_WINDOW", c.LoginRateWindow)
	c.HashConcurrency = EnvInt(EnvPrefix+"HASH_CONCURRENCY", c.HashConcurrency)
	c.PasswordRejectWeak = EnvBool(EnvPrefix+"PASSWORD_REJECT_WEAK", c.PasswordRejectWeak)
}
