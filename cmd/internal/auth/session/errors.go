package session

import "errors"

var (
	// ErrNoToken is returned when no token was presented at all.
	ErrNoToken = errors.New("no token")

	// ErrInvalidToken is returned when a token fails signature or claim
	// verification, or when a refresh token's fingerprint no longer matches
	// the session record (rotation reuse).
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a token's signature is valid but the
	// token (or the backing session) has expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrNoSession is returned when a refresh token references a session that
	// no longer exists.
	ErrNoSession = errors.New("no session")

	// ErrInvalidCredentials collapses unknown-user and wrong-password so the
	// login response does not leak which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSessionID is returned on logout when the presented token does
	// not carry a well-formed session id.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// Reason is the machine-readable failure code surfaced on 401 responses.
type Reason string

const (
	ReasonNoToken      Reason = "NO_TOKEN"
	ReasonInvalidToken Reason = "INVALID_TOKEN"
	ReasonTokenExpired Reason = "TOKEN_EXPIRED"
	ReasonNoSession    Reason = "NO_SESSION"
)

// ReasonForError maps a session error to its wire reason code.
// Unknown errors map to INVALID_TOKEN; callers should treat unexpected
// errors as server faults before consulting the reason.
func ReasonForError(err error) Reason {
	switch {
	case errors.Is(err, ErrNoToken):
		return ReasonNoToken
	case errors.Is(err, ErrTokenExpired):
		return ReasonTokenExpired
	case errors.Is(err, ErrNoSession):
		return ReasonNoSession
	default:
		return ReasonInvalidToken
	}
}
