package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Lockout counts failed enrollment PINs per identity. After Attempts
// failures inside Window the identity is refused until the oldest failure
// ages out.
type Lockout struct {
	store    Store
	attempts int
	window   time.Duration
	metrics  *Metrics
}

type LockoutOption func(*Lockout)

func WithLockoutMetrics(m *Metrics) LockoutOption {
	return func(l *Lockout) { l.metrics = m }
}

func NewLockout(store Store, attempts int, window time.Duration, opts ...LockoutOption) (*Lockout, error) {
	if store == nil {
		return nil, errors.New("rate limit store is required")
	}
	if attempts <= 0 || window <= 0 {
		return nil, fmt.Errorf("lockout needs positive attempts and window, got %d and %s", attempts, window)
	}
	l := &Lockout{store: store, attempts: attempts, window: window}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func lockoutKey(id string) string { return "enroll:" + id }

// Locked reports whether id has exhausted its attempts.
func (l *Lockout) Locked(ctx context.Context, id string) (bool, error) {
	n, err := l.store.Count(ctx, lockoutKey(id), l.window)
	if err != nil {
		return false, err
	}
	if n >= l.attempts {
		l.metrics.incrementLockout("locked")
		return true, nil
	}
	return false, nil
}

func (l *Lockout) RecordFailure(ctx context.Context, id string) error {
	if _, err := l.store.AllowN(ctx, lockoutKey(id), 1, l.attempts, l.window); err != nil {
		return err
	}
	l.metrics.incrementLockout("recorded")
	return nil
}

// Clear forgets failures after a successful enrollment.
func (l *Lockout) Clear(ctx context.Context, id string) error {
	return l.store.Reset(ctx, lockoutKey(id))
}
