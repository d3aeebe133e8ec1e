package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mobilid/pkg/requestcontext"
)

// SweepReport summarizes one pass over every serial.
type SweepReport struct {
	Total    int
	Outcomes map[Outcome]int
	Failed   int
	Duration time.Duration
}

// SweepAll refreshes every pass with bounded concurrency. Per-item failures
// are counted and logged; only a cancelled context ends the sweep early.
// Each item takes just its own serial's lock.
func (d *Dispatcher) SweepAll(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	ctx = requestcontext.WithTrigger(ctx, "sweep")

	serials, err := d.passes.ListSerialNumbers(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list serials: %w", err)
	}

	report := SweepReport{Total: len(serials), Outcomes: make(map[Outcome]int)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(d.cfg.SweepConcurrency)
	for _, serial := range serials {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, err := d.RefreshAndNotify(ctx, serial)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				d.metrics.IncrementSweepItem("failed")
				if !errors.Is(err, context.Canceled) {
					d.logger.WarnContext(ctx, "sweep item failed", "serial", serial, "error", err)
				}
				return nil
			}
			report.Outcomes[outcome]++
			d.metrics.IncrementSweepItem(string(outcome))
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	d.logger.InfoContext(ctx, "sweep finished",
		"total", report.Total,
		"updated", report.Outcomes[OutcomeUpdated],
		"unchanged", report.Outcomes[OutcomeUnchanged],
		"failed", report.Failed,
		"duration", report.Duration,
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
