// Package ratelimit provides a sliding-window rate limiter with pluggable
// storage backends and HTTP middleware.
//
// The sliding window tracks individual request timestamps within a moving
// time window, which keeps bursts at window boundaries from doubling the
// effective limit. Stores must implement the atomic check-and-record
// operation so concurrent requests cannot exceed the limit.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidLimit    = errors.New("invalid limit")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrKeyRequired     = errors.New("key is required")
	ErrStoreRequired   = errors.New("store is required")
)

// Result contains the result of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests remaining in the current window.
	Remaining int

	// ResetAt is the time when the rate limit window resets.
	ResetAt time.Time
}

// RetryAfter returns how long to wait before the next request is allowed.
// Returns 0 if the current request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Limiter defines the interface for rate limiting implementations.
type Limiter interface {
	// Allow checks if a single request is allowed for the given key.
	// If allowed, it consumes one slot.
	Allow(ctx context.Context, key string) (*Result, error)

	// Reset resets the rate limit for the given key.
	Reset(ctx context.Context, key string) error
}

// Store defines the storage backend for sliding-window limiters.
type Store interface {
	// RecordIfAllowed atomically checks whether recording another request
	// keeps the count within limit and records it if so. Returns whether
	// the request was recorded and the resulting in-window count.
	RecordIfAllowed(ctx context.Context, key string, timestamp time.Time, window time.Duration, limit int) (bool, int64, error)

	// Delete removes the given key from the store.
	Delete(ctx context.Context, key string) error
}
