package auth

import "errors"

// Sentinel errors shared by the JWT and ingest-signature middleware.
// ErrForbidden means the token was valid but the role is below what
// the dashboard route requires.
var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
	ErrInvalidToken = errors.New("auth: invalid token")
)
