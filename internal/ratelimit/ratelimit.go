// Package ratelimit bounds anonymous traffic with sliding windows and locks
// identities out of enrollment after repeated PIN failures.
package ratelimit

import (
	"context"
	"time"
)

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is zero when Allowed.
	RetryAfter time.Duration
}

// Store keeps sliding-window counters.
type Store interface {
	// AllowN admits cost events under key when the window has room for them.
	// Rejected events are not recorded.
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (Result, error)
	// Count reports the events recorded under key within window.
	Count(ctx context.Context, key string, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}

func retryAfter(resetAt, now time.Time) time.Duration {
	d := resetAt.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d.Truncate(time.Second)
}
