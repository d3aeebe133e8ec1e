package ratelimit

import (
	"context"
	"sync"
	"time"

	"mobilid/pkg/platform/clock"
)

// MemoryStore is a process-local sliding window store, used when Redis is
// not configured.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	windows map[string][]time.Time
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryStore{clock: c, windows: make(map[string][]time.Time)}
}

func (s *MemoryStore) AllowN(_ context.Context, key string, cost, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	events := prune(s.windows[key], now.Add(-window))

	if len(events)+cost > limit {
		s.windows[key] = events
		resetAt := now.Add(window)
		if len(events) > 0 {
			resetAt = events[0].Add(window)
		}
		return Result{
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt, now),
		}, nil
	}

	for range cost {
		events = append(events, now)
	}
	s.windows[key] = events
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(events),
		ResetAt:   events[0].Add(window),
	}, nil
}

func (s *MemoryStore) Count(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := prune(s.windows[key], s.clock.Now().Add(-window))
	if len(events) == 0 {
		delete(s.windows, key)
		return 0, nil
	}
	s.windows[key] = events
	return len(events), nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// prune drops events at or before cutoff. events is sorted.
func prune(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(events); i++ {
		if events[i].After(cutoff) {
			break
		}
	}
	return events[i:]
}
