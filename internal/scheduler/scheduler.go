// Package scheduler triggers the periodic sweep that refreshes every pass
// from the identity source.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mobilid/internal/dispatch"
	"mobilid/pkg/platform/clock"
)

// Sweeper runs one full sweep.
type Sweeper interface {
	SweepAll(ctx context.Context) (dispatch.SweepReport, error)
}

type Config struct {
	Interval time.Duration
	// StartDelay postpones the first sweep after startup. Zero sweeps on
	// the first interval tick.
	StartDelay time.Duration
}

// Scheduler calls SweepAll on a fixed interval. A sweep that overruns the
// interval delays the next one rather than overlapping it.
type Scheduler struct {
	sweeper Sweeper
	cfg     Config
	clock   clock.Clock
	logger  *slog.Logger
}

type Option func(*Scheduler)

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func New(sweeper Sweeper, cfg Config, opts ...Option) (*Scheduler, error) {
	if sweeper == nil {
		return nil, errors.New("sweeper is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}
	s := &Scheduler{
		sweeper: sweeper,
		cfg:     cfg,
		clock:   clock.Real(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.StartDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.cfg.StartDelay):
		}
		s.sweep(ctx)
	}

	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	report, err := s.sweeper.SweepAll(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.ErrorContext(ctx, "sweep aborted", "error", err, "total", report.Total)
		}
		return
	}
	s.logger.InfoContext(ctx, "scheduled sweep complete",
		"total", report.Total,
		"failed", report.Failed,
		"duration", report.Duration,
		"next_in", s.cfg.Interval,
	)
}
