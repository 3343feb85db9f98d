package domain

import "errors"

var (
	// ErrIndexNotFound signals a missing telemetry index.
	ErrIndexNotFound = errors.New("telemetry index not found")
	// ErrInvalidQuery signals a malformed analysis query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrStoreUnavailable signals that the telemetry store is unreachable.
	ErrStoreUnavailable = errors.New("telemetry store unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingFailed signals that a single item could not be embedded.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrInsufficientData signals that a dataset is too small for the requested analysis.
	ErrInsufficientData = errors.New("insufficient data")
)
