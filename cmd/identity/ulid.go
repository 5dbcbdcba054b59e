package identity

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a new ULID string (26 chars).
// ULIDs are lexicographically sortable and index-friendly.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsValidID reports whether s parses as a ULID. Used by the HTTP layer to
// reject malformed identifiers before touching the store.
func IsValidID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
