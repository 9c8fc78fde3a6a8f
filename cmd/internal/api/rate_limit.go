package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxTrackedKeys bounds memory; past it, a full sweep drops idle keys.
const maxTrackedKeys = 10_000

// failureLimiter is a per-key sliding window over failed login attempts.
type failureLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	byKey  map[string][]time.Time
}

func newFailureLimiter(max int, window time.Duration) *failureLimiter {
	return &failureLimiter{
		max:    max,
		window: window,
		byKey:  make(map[string][]time.Time),
	}
}

// Acquire reports whether key may attempt a login at now. An allowed attempt
// is counted as a failure immediately, under the same lock as the check, so
// concurrent attempts cannot overshoot max. Call Release if the attempt ends
// in anything other than a credential failure.
func (l *failureLimiter) Acquire(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if blocked, retry := evaluateWindowThrottle(now, l.byKey[key], l.max, l.window); blocked {
		return false, retry
	}
	l.recordLocked(key, now)
	return true, 0
}

// Release uncounts the attempt Acquire recorded for key at at.
func (l *failureLimiter) Release(key string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := l.byKey[key]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Equal(at) {
			events = append(events[:i], events[i+1:]...)
			break
		}
	}
	if len(events) == 0 {
		delete(l.byKey, key)
		return
	}
	l.byKey[key] = events
}

func (l *failureLimiter) recordLocked(key string, now time.Time) {
	l.byKey[key] = append(prune(l.byKey[key], now.Add(-l.window)), now)

	if len(l.byKey) > maxTrackedKeys {
		cut := now.Add(-l.window)
		for k, events := range l.byKey {
			if kept := prune(events, cut); len(kept) == 0 {
				delete(l.byKey, k)
			} else {
				l.byKey[k] = kept
			}
		}
	}
}

// Reset forgets key, e.g. after a successful login.
func (l *failureLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.byKey, key)
	l.mu.Unlock()
}

func prune(events []time.Time, cut time.Time) []time.Time {
	dst := events[:0]
	for _, t := range events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	return dst
}

// evaluateWindowThrottle blocks once max failures fall inside window.
// retry is how long until the oldest counted failure leaves the window.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	if max <= 0 || window <= 0 {
		return false, 0
	}
	cut := now.Add(-window)
	count := 0
	var oldest time.Time
	for _, t := range failures {
		if !t.After(cut) {
			continue
		}
		count++
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
	}
	if count < max {
		return false, 0
	}
	return true, oldest.Add(window).Sub(now)
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
