// Package identity verifies bearer tokens against a published JWKS and talks to the
// identity provider for sign-in, user info and logout.
package identity

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenExpired    = errors.New("token has expired")
	ErrProvider        = errors.New("identity provider error")
)
