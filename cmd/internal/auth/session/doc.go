// Package session implements Pulse's session architecture.
//
// It provides a single-session-per-user model with refresh-token rotation:
// a login replaces any prior session for the user via an atomic upsert, and a
// refresh rotates the token pair in place on the same session record.
//
// Access and refresh tokens are HS256 JWTs signed with two distinct secrets.
// Refresh tokens additionally carry the session id and are stored server-side
// only as a fingerprint (HMAC-SHA256 when PULSE_TOKEN_HMAC_KEY is set;
// otherwise SHA-256 for dev).
//
// Transport (HTTP) integration is intentionally out of scope here.
package session
