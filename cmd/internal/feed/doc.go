// Package feed holds Pulse's content domain: posts and the comments under
// them. The service layer enforces ownership and referential checks; the
// stores keep the denormalized per-user post count in step with the rows.
package feed
