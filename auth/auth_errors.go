package auth

import "errors"

var (
	// ErrUnauthorized means the session is missing, terminally expired,
	// or its silent refresh failed. Callers must surface it as an
	// explicit unauthorized response, never downgrade it.
	ErrUnauthorized = errors.New("invalid or expired session")

	ErrMissingIDData = errors.New("identity provider returned no usable identity")
)
