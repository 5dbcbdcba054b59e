// Package token provides refresh-token fingerprinting primitives for Pulse.
//
// It is the single source of truth for how refresh tokens are hashed before
// they are persisted on a session record.
//
// Design goals:
// - Default dev mode: SHA-256(token) when no HMAC key is configured.
// - Production mode: HMAC-SHA256(token, key) when PULSE_TOKEN_HMAC_KEY is set.
// - Stable 64-char hex output for storage and constant-time comparison.
package token
