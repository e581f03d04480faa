package domain

import "errors"

var (
	// ErrInvalidBatch is returned when an ingestion batch violates size or shape bounds
	ErrInvalidBatch = errors.New("invalid batch")

	// ErrValidation is returned for a malformed individual event
	ErrValidation = errors.New("validation error")

	// ErrTenantMismatch is returned when a payload names a tenant other than the caller's
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrPersistence wraps transient event store failures
	ErrPersistence = errors.New("persistence failure")

	// ErrCacheUnavailable wraps cache backend failures; never surfaced to callers
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrQuery is returned for malformed analytics parameters
	ErrQuery = errors.New("query error")
)
