package password

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool runs hashing work on worker goroutines, at most N at a time.
//
// Argon2id is deliberately expensive. Running it unbounded on request
// goroutines lets a burst of logins starve everything else, so callers go
// through the Pool and wait for a slot. A caller whose context ends stops
// waiting; the in-flight computation still finishes and frees its slot.
type Pool struct {
	cfg     Config
	sem     *semaphore.Weighted
	observe func(op string, d time.Duration)
}

// PoolOption customizes a Pool.
type PoolOption func(*Pool)

// WithObserver registers a callback invoked after every hash or compare with
// the operation name ("hash" or "compare") and its duration.
func WithObserver(fn func(op string, d time.Duration)) PoolOption {
	return func(p *Pool) { p.observe = fn }
}

// NewPool returns a Pool using cfg with the given concurrency.
// concurrency <= 0 selects DefaultConcurrency().
func NewPool(cfg Config, concurrency int, opts ...PoolOption) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}
	p := &Pool{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(concurrency)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the hashing configuration used by the pool.
func (p *Pool) Config() Config { return p.cfg }

// Hash hashes password on a worker. The only errors are entropy failure and
// ctx ending before the result is available.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	type result struct {
		hash string
		err  error
	}
	out, err := run(ctx, p, "hash", func() result {
		h, err := p.cfg.Hash(password)
		return result{hash: h, err: err}
	})
	if err != nil {
		return "", err
	}
	return out.hash, out.err
}

// Compare checks password against encodedHash on a worker. The error is
// non-nil only when ctx ends first; a mismatch is (false, nil).
func (p *Pool) Compare(ctx context.Context, password, encodedHash string) (bool, error) {
	return run(ctx, p, "compare", func() bool {
		return p.cfg.Compare(password, encodedHash)
	})
}

func run[T any](ctx context.Context, p *Pool, op string, fn func() T) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	// Buffered so the worker never blocks if the caller has gone away.
	done := make(chan T, 1)
	go func() {
		defer p.sem.Release(1)
		start := time.Now()
		v := fn()
		if p.observe != nil {
			p.observe(op, time.Since(start))
		}
		done <- v
	}()

	select {
	case v := <-done:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
