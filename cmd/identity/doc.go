// Package identity implements Pulse's user principal foundation.
//
// It contains the canonical User model, security primitives (ULID, password
// hashing), and the user store used by the HTTP layers.
//
// This package is intentionally dependency-light and security-first.
package identity
