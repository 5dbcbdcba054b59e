// Package rest exposes the user, post and comment resources over HTTP.
// Reads are public; every mutation besides signup sits behind the bearer
// access token middleware, and ownership is enforced in the feed service.
package rest
