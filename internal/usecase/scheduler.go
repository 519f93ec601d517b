package usecase

import (
	"context"
	"log/slog"
	"time"

	"CompetitionScanner/internal/ports"
)

// SelectorAll crawls every configured site.
const SelectorAll = "all"

// Scheduler wires the daily driver with the crawl and status refresh.
type Scheduler struct {
	driver    ports.Scheduler
	pipeline  *Pipeline
	refresher *Refresher
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop the daily job. refresher may be nil.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, refresher *Refresher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, refresher: refresher, logger: logger}
}

// Start registers the daily job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) { s.RunOnce(ctx, trigger) })
}

// RunOnce crawls every site and then refreshes stored statuses.
// Failures are logged; the next day runs regardless.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) {
	s.logger.Info("scheduled run started", "trigger", trigger)

	if _, err := s.pipeline.Crawl(ctx, SelectorAll); err != nil {
		s.logger.Error("scheduled crawl failed", "error", err)
	}
	if ctx.Err() != nil || s.refresher == nil {
		return
	}
	if _, err := s.refresher.Run(ctx); err != nil {
		s.logger.Error("scheduled status refresh failed", "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
