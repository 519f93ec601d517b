package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CompetitionScanner/internal/dates"
	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/retry"
	"CompetitionScanner/internal/scanner"
)

// RefreshDeps wires the status refresh.
type RefreshDeps struct {
	Store     ports.RecordStore
	Pages     ports.PageFetcher
	Extractor *dates.Extractor
	Policy    *retry.Policy
	Logger    *slog.Logger

	PageSize int
	Delay    time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// RefreshStats counts what one refresh did.
type RefreshStats struct {
	Checked int
	Skipped int
	Updated int
	Failed  int
}

// Refresher marks stored competitions ENDED once their detail page shows a
// past end date.
type Refresher struct {
	store     ports.RecordStore
	pages     ports.PageFetcher
	extractor *dates.Extractor
	policy    retry.Policy
	logger    *slog.Logger
	pageSize  int
	delay     time.Duration
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewRefresher fills unset dependencies with defaults.
func NewRefresher(deps RefreshDeps) *Refresher {
	r := &Refresher{
		store:     deps.Store,
		pages:     deps.Pages,
		extractor: deps.Extractor,
		logger:    deps.Logger,
		pageSize:  deps.PageSize,
		delay:     deps.Delay,
		now:       deps.Now,
		sleep:     deps.Sleep,
	}
	if deps.Policy != nil {
		r.policy = *deps.Policy
	} else {
		r.policy = retry.New(3, time.Second)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.extractor == nil {
		r.extractor = dates.NewExtractor(nil)
	}
	if r.pageSize <= 0 {
		r.pageSize = 500
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.sleep == nil {
		r.sleep = scanner.Pause
	}
	return r
}

// Run walks every stored record once.
func (r *Refresher) Run(ctx context.Context) (RefreshStats, error) {
	var stats RefreshStats
	if r.store == nil || r.pages == nil {
		return stats, fmt.Errorf("refresh status: %w", domain.ErrNotConfigured)
	}

	records, err := r.store.ListAll(ctx, r.pageSize)
	if err != nil {
		return stats, fmt.Errorf("list records: %w", err)
	}
	r.logger.Info("refreshing competition status", "records", len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if rec.Status == domain.StatusEnded || rec.Link == "" {
			stats.Skipped++
			continue
		}
		stats.Checked++

		log := r.logger.With("item", rec.Title, "id", rec.ID)

		text, err := r.pages.Text(ctx, rec.Link)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return stats, err
			}
			stats.Failed++
			log.Warn("detail page unavailable", "stage", "details", "error", err)
			continue
		}

		period := r.extractor.Extract(text)
		if dates.ClassifyStatus(period.Start, period.End, r.now()) != domain.StatusEnded {
			continue
		}

		ended := domain.StatusEnded
		err = r.policy.Do(ctx, func(ctx context.Context) error {
			return r.store.Update(ctx, rec.ID, domain.Patch{Status: &ended})
		})
		switch {
		case errors.Is(err, domain.ErrAuth):
			return stats, fmt.Errorf("update %s: %w", rec.ID, err)
		case err != nil:
			stats.Failed++
			log.Error("status update failed", "stage", "update", "error", err)
		default:
			stats.Updated++
			log.Info("competition marked ended")
		}

		if err := r.sleep(ctx, r.delay); err != nil {
			return stats, err
		}
	}

	r.logger.Info("status refresh finished",
		"checked", stats.Checked,
		"updated", stats.Updated,
		"failed", stats.Failed,
	)
	return stats, nil
}
