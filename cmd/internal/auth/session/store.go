package session

import (
	"context"
	"time"
)

// Row is a session record. RefreshTokenHash holds the fingerprint of the
// current refresh token, never the token itself. A row with an empty hash is
// a session that has been created but not yet bound to a refresh token.
type Row struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	IP               string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ExpiresAt        time.Time
}

// Expired reports whether the session is past its expiry at now.
func (r Row) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Store persists sessions. Each user has at most one live session; Create
// replaces any prior session for the user in a single atomic operation.
type Store interface {
	// Create upserts the session for userID and returns the session id.
	// An existing session for the user is replaced, which invalidates any
	// refresh token bound to it.
	Create(ctx context.Context, now time.Time, userID, ip string) (string, error)

	// AttachRefreshToken binds a refresh token fingerprint and expiry to a
	// freshly created session. ErrNoSession if the session does not exist.
	AttachRefreshToken(ctx context.Context, now time.Time, sessionID, tokenHash string, expiresAt time.Time) error

	// GetByID fetches a session. ErrNoSession if absent.
	GetByID(ctx context.Context, sessionID string) (Row, error)

	// GetByUser fetches the session owned by userID. ErrNoSession if absent.
	GetByUser(ctx context.Context, userID string) (Row, error)

	// Rotate swaps the refresh token fingerprint in place, guarded by the
	// previous fingerprint. ErrInvalidToken if the guard does not match
	// (reuse of a rotated token, or a concurrent rotation won the race).
	Rotate(ctx context.Context, now time.Time, sessionID, oldHash, newHash string, newExpiresAt time.Time) error

	// Delete removes a session by id. ErrNoSession if absent.
	Delete(ctx context.Context, sessionID string) error

	// DeleteByUser removes the session owned by userID, reporting whether a
	// row was removed.
	DeleteByUser(ctx context.Context, userID string) (bool, error)

	// DeleteExpired removes sessions whose expiry is at or before now and
	// returns the number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
