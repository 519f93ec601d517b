// Package ingest turns one scraped item into at most one store write.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"CompetitionScanner/internal/dates"
	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/retry"
	"CompetitionScanner/internal/textutil"
)

// Item is a scraped competition ready for ingestion. Categories and
// Difficulty are optional.
type Item struct {
	Name        string
	Link        string
	Description string
	Platform    string
	Start       *time.Time
	End         *time.Time
	Categories  []string
	Difficulty  string
}

// Outcome says what Ingest did to the store.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeExisting      Outcome = "existing"
	OutcomeStatusUpdated Outcome = "status-updated"
)

// Result reports the outcome and the record it concerns.
type Result struct {
	Outcome Outcome
	Record  domain.Competition
}

// Coordinator validates, labels and submits items.
type Coordinator struct {
	store    ports.RecordStore
	labeler  ports.Labeler
	fallback ports.Labeler
	policy   retry.Policy
	now      func() time.Time
	logger   *slog.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLabeler sets the primary classifier.
func WithLabeler(l ports.Labeler) Option {
	return func(c *Coordinator) { c.labeler = l }
}

// WithFallbackLabeler is consulted when the primary classifier fails.
// Without one, failed items get DefaultLabels.
func WithFallbackLabeler(l ports.Labeler) Option {
	return func(c *Coordinator) { c.fallback = l }
}

// WithRetryPolicy replaces the default of 3 attempts starting at 1s.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator builds a coordinator writing to store.
func NewCoordinator(store ports.RecordStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		policy: retry.New(3, time.Second),
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.Logger == nil {
		c.policy.Logger = c.logger
	}
	return c
}

// Ingest never creates a second record for a link the store already holds.
// An existing record is only touched to move it from ONGOING to ENDED.
func (c *Coordinator) Ingest(ctx context.Context, item Item) (Result, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.Link = strings.TrimSpace(item.Link)
	if item.Name == "" {
		return Result{}, fmt.Errorf("%w: name is empty", domain.ErrValidation)
	}
	if item.Link == "" {
		return Result{}, fmt.Errorf("%w: link is empty for %q", domain.ErrValidation, item.Name)
	}

	status := dates.ClassifyStatus(item.Start, item.End, c.now())

	existing, err := c.findByLink(ctx, item.Link)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return c.reconcile(ctx, *existing, status)
	}

	labels := c.labels(ctx, item)

	record := domain.Competition{
		Title:       StoredTitle(item.Name),
		Link:        textutil.Truncate(textutil.CleanText(item.Link), maxLinkRunes),
		Status:      status,
		Categories:  labels.Categories,
		Difficulty:  labels.Difficulty,
		Platform:    textutil.CleanText(item.Platform),
		Description: textutil.CleanText(item.Description),
	}
	if record.Title == "" {
		return Result{}, fmt.Errorf("%w: name %q has no storable characters", domain.ErrValidation, item.Name)
	}

	err = c.policy.Do(ctx, func(ctx context.Context) error {
		id, err := c.store.Create(ctx, record)
		if err != nil {
			return err
		}
		record.ID = id
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrConflict):
		c.logger.Info("record created concurrently", "item", item.Name, "stage", "create")
		return Result{Outcome: OutcomeExisting, Record: record}, nil
	case err != nil:
		return Result{}, fmt.Errorf("create %q: %w", item.Name, err)
	}

	c.logger.Info("record created", "item", record.Title, "status", record.Status, "id", record.ID)
	return Result{Outcome: OutcomeCreated, Record: record}, nil
}

func (c *Coordinator) findByLink(ctx context.Context, link string) (*domain.Competition, error) {
	var found []domain.Competition
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		found, err = c.store.Search(ctx, domain.FieldLink, link)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search link %q: %w", link, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (c *Coordinator) reconcile(ctx context.Context, existing domain.Competition, status domain.Status) (Result, error) {
	if status != domain.StatusEnded || existing.Status == domain.StatusEnded {
		c.logger.Debug("record exists", "item", existing.Title, "id", existing.ID)
		return Result{Outcome: OutcomeExisting, Record: existing}, nil
	}

	ended := domain.StatusEnded
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		return c.store.Update(ctx, existing.ID, domain.Patch{Status: &ended})
	})
	if err != nil {
		return Result{}, fmt.Errorf("update status of %q: %w", existing.Title, err)
	}

	existing.Status = ended
	c.logger.Info("record marked ended", "item", existing.Title, "id", existing.ID)
	return Result{Outcome: OutcomeStatusUpdated, Record: existing}, nil
}

// labels fills only what the item lacks, then normalizes.
func (c *Coordinator) labels(ctx context.Context, item Item) domain.Labels {
	have := domain.Labels{Categories: item.Categories, Difficulty: item.Difficulty}
	if len(have.Categories) > 0 && have.Difficulty != "" {
		return NormalizeLabels(have)
	}

	got, err := c.classify(ctx, c.labeler, item)
	if err != nil {
		if !errors.Is(err, domain.ErrNotConfigured) {
			c.logger.Warn("classifier failed", "item", item.Name, "stage", "classify", "error", err)
		}
		got, err = c.classify(ctx, c.fallback, item)
		if err != nil {
			got = DefaultLabels()
		}
	}

	if len(have.Categories) == 0 {
		have.Categories = got.Categories
	}
	if have.Difficulty == "" {
		have.Difficulty = got.Difficulty
	}
	return NormalizeLabels(have)
}

func (c *Coordinator) classify(ctx context.Context, l ports.Labeler, item Item) (domain.Labels, error) {
	if l == nil {
		return domain.Labels{}, domain.ErrNotConfigured
	}
	return l.Classify(ctx, item.Name, item.Description)
}
