// Package common defines shared constants and sentinel errors used across
// the gophadmin server, its worker and their tests. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Query options referencing fields or operators the store does not expose.
	ErrUnsupportedQuery = errors.New("unsupported query")

	// Object URL that does not belong to the configured bucket.
	ErrForeignObjectURL = errors.New("object url is outside the storage bucket")
)
