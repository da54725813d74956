package auth

import "errors"

var (
	// ErrUnauthenticated means no credential was presented.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrForbidden means a credential was presented but is invalid, expired or lacks the required role.
	ErrForbidden = errors.New("auth: forbidden")
)
