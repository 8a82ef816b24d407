// Package ratelimit throttles expensive control API calls.
//
// Starting a benchmark fans out to the oracle and the target system once per
// scenario, so callers are limited per user. The in-memory token bucket is
// per process; multi-instance deployments limit per instance.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed. An error signals a
	// limiter malfunction; callers fail open.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources.
	Close() error
}

// RetryAfterer is implemented by limiters that can estimate when key will
// next be allowed.
type RetryAfterer interface {
	RetryAfter(key string) time.Duration
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
