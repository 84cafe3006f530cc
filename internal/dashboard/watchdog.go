package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/observability"
	"github.com/robfig/cron/v3"
)

// Watchdog revalidates the data directory on a cron schedule and reports
// the outcome through readiness and the data_valid gauge.
type Watchdog struct {
	source  Source
	logger  *slog.Logger
	metrics *observability.Metrics
	cron    *cron.Cron

	mu      sync.RWMutex
	checked bool
	lastErr error
}

// NewWatchdog creates a Watchdog over src.
func NewWatchdog(src Source, logger *slog.Logger, metrics *observability.Metrics) *Watchdog {
	return &Watchdog{source: src, logger: logger, metrics: metrics}
}

// RunOnce validates every data file and records the result.
func (w *Watchdog) RunOnce(ctx context.Context) error {
	checks := Validate(ctx, w.source)
	err := Failed(checks)

	w.mu.Lock()
	w.checked = true
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.metrics.DataValid.Set(0)
		for _, c := range checks {
			if c.Err != nil {
				w.logger.Warn("data file invalid", "file", c.File, "error", c.Err)
			}
		}
		return err
	}
	w.metrics.DataValid.Set(1)
	w.logger.Debug("data files valid", "files", len(checks))
	return nil
}

// Start runs a first validation, then schedules the next ones. An empty
// schedule disables the periodic runs.
func (w *Watchdog) Start(ctx context.Context, schedule string) error {
	_ = w.RunOnce(ctx)
	if schedule == "" {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() { _ = w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule validation %q: %w", schedule, err)
	}
	c.Start()
	w.cron = c
	w.logger.Info("data watchdog started", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running validation to finish or
// ctx to expire.
func (w *Watchdog) Stop(ctx context.Context) error {
	if w.cron == nil {
		return nil
	}
	select {
	case <-w.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckReadiness returns nil once the data files have been validated
// successfully, or an error describing why the service is not ready.
func (w *Watchdog) CheckReadiness(_ context.Context) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.checked {
		return errors.New("data files have not been validated yet")
	}
	if w.lastErr != nil {
		return fmt.Errorf("data validation failed: %w", w.lastErr)
	}
	return nil
}
