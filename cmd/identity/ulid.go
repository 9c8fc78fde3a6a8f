package identity

import (
	"time"

	"github.com/oklog/ulid/v2"

	"quill/cmd/identity/ids"
)

// NewULID returns a new user id.
func NewULID(now time.Time) (ulid.ULID, error) {
	return ids.NewULID(now)
}
