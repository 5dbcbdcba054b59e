// Package password provides password hashing and verification for Pulse.
//
// It wraps bcrypt with:
// - A configurable cost factor (via environment variables)
// - Password policy validation (length bounds)
// - Verification that is constant-time by construction (bcrypt compare)
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify.
// - bcrypt truncates inputs beyond 72 bytes; the policy MaxLength must never
//   exceed that boundary.
package password
