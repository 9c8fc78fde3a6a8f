// Package ids provides identity ID primitives (ULID) used by the identity and content stores.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a new ULID.
// ULIDs are lexicographically sortable, so ids double as creation order.
func NewULID(now time.Time) (ulid.ULID, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return ulid.New(ulid.Timestamp(now), rand.Reader)
}

// Parse parses the canonical 26-char string form.
func Parse(s string) (ulid.ULID, error) {
	return ulid.ParseStrict(s)
}
