package auth

import "errors"

var (
	// ErrMissingSecret is returned by constructors when the signing secret is empty.
	ErrMissingSecret = errors.New("signing secret must not be empty")
	// ErrInvalidToken covers every way a token can fail verification:
	// malformed, wrong key, wrong algorithm, expired, not yet valid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionExists is returned by SessionStore.Insert when the token is already present.
	ErrSessionExists = errors.New("session already exists")
)
