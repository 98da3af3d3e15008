// Package common defines shared constants and sentinel errors used across
// the server and client layers of divvyauth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Authentication decisions. These are deliberately coarse: callers must
	// not be able to tell which check failed.
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Federated identity errors.
	ErrInvalidIdentityClaim = errors.New("invalid identity claim")
	ErrVerificationFailed   = errors.New("identity verification failed")

	// Input validation.
	ErrorValidation = errors.New("validation error")
)
