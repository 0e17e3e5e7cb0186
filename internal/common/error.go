// Package common defines shared constants and sentinel errors used across
// the carpooling service. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal   = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Token verification errors. Verification failures are reported to
	// callers uniformly; the distinct kinds exist for logging.
	ErrBadSignature     = errors.New("bad token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrMalformedSubject = errors.New("token subject missing")

	// ErrInvalidCredentials covers both unknown username and wrong
	// password; the two cases must stay indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Cache errors. A miss is normal control flow, unavailability is not.
	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheUnavailable = errors.New("cache unavailable")
)
