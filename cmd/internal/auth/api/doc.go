// Package authapi is the HTTP boundary of the auth subsystem: login,
// refresh and logout endpoints plus the middleware that gates protected
// routes on a bearer access token.
//
// The refresh token travels only in an httpOnly cookie; the access token is
// returned in the response body and presented back as a bearer header.
package authapi
