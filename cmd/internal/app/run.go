package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Serve is the entrypoint used by `quill serve`. It validates security
// settings, wires the App and runs it until SIGINT or SIGTERM.
// It returns an error instead of calling os.Exit to keep defers effective.
func Serve(ctx context.Context, cfg Config) error {
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	secret, err := ValidateSecurityConfig(cfg)
	if err != nil {
		log.Error("security.config.invalid", "err", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log, secret)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
