// Package app wires the Quill server runtime: config, logging, storage,
// services and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"quill/cmd/identity"
	"quill/cmd/internal/account"
	"quill/cmd/internal/api"
	"quill/cmd/internal/auth/guard"
	"quill/cmd/internal/auth/session"
	"quill/cmd/internal/content"
	"quill/cmd/internal/metrics"
	"quill/cmd/internal/schema"
	"quill/cmd/security/password"
)

// App is the Quill server runtime: it owns the HTTP server and its dependencies.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool

	reg     *prometheus.Registry
	metrics *metrics.Metrics

	handler *api.Handler
}

// stores groups the persistence backends selected by config.
type stores struct {
	users identity.Store
	posts content.Store
	pool  *pgxpool.Pool
}

// New constructs a fully wired App. secret is the session signing key.
func New(ctx context.Context, cfg Config, log Logger, secret []byte) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	reg, m := metrics.NewRegistry()

	st, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	h, err := newHandler(ctx, cfg, log, m, st, secret)
	if err != nil {
		if st.pool != nil {
			st.pool.Close()
		}
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		dbPool:  st.pool,
		reg:     reg,
		metrics: m,
		handler: h,
	}, nil
}

func newHandler(ctx context.Context, cfg Config, log Logger, m *metrics.Metrics, st stores, secret []byte) (*api.Handler, error) {
	scfg := session.DefaultConfig()
	scfg.Secret = secret
	scfg.TTL = cfg.SessionTTL
	scfg.Issuer = cfg.SessionIssuer
	tokens, err := session.NewTokenService(scfg)
	if err != nil {
		return nil, err
	}

	pcfg := passwordConfig(cfg)
	hasher := password.NewPool(pcfg, cfg.HashConcurrency, password.WithObserver(m.ObserveHash))

	accounts, err := account.NewService(ctx, log, st.users, hasher, tokens,
		account.WithMetrics(m),
		account.WithPolicy(pcfg),
	)
	if err != nil {
		return nil, err
	}

	posts := content.NewService(log, st.posts, m)

	acfg := api.DefaultConfig()
	acfg.TrustProxy = cfg.TrustProxy
	acfg.MaxBodyBytes = cfg.MaxBodyBytes
	acfg.LoginMax = cfg.LoginRateMax
	acfg.LoginWindow = cfg.LoginRateWindow
	acfg.CookieSecure = cfg.CookieSecure
	acfg.CookieSameSite = api.ParseSameSite(cfg.CookieSameSite)

	return api.NewHandler(log, acfg, accounts, posts, guard.New(tokens, cfg.CookieName), tokens.TTL())
}

func passwordConfig(cfg Config) password.Config {
	pcfg := password.DefaultConfig()
	pcfg.Policy.RejectVeryWeak = cfg.PasswordRejectWeak
	return pcfg
}

// newStores decides between Postgres-backed persistence and in-memory dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		users := identity.NewMemoryStore()
		return stores{
			users: users,
			posts: content.NewMemoryStore(content.WithAuthors(users)),
		}, nil
	}

	if cfg.AutoMigrate {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return stores{}, err
		}
		log.Info("db.migrate.ok")
	}

	pool, err := NewDBPool(ctx, cfg, log)
	if err != nil {
		return stores{}, err
	}

	// The app owns the pool; stores never close it.
	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	posts, err := content.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}

	log.Info("db.enabled.postgres_store")
	return stores{users: users, posts: posts, pool: pool}, nil
}

func migrateUp(databaseURL string) (err error) {
	m, err := schema.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, m.Close()) }()
	return m.Up()
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.reg, a.handler)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           buildHandler(mux, a.cfg, a.log, a.metrics),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"url", runtimeBaseURL(a.cfg.HTTPAddr),
		"db_enabled", a.dbPool != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.close()
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.close()
		return err
	}

	a.close()
	a.log.Info("server.stopped")
	return nil
}

func (a *App) close() {
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

// runtimeBaseURL turns a listen address into a URL a local client can use.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
