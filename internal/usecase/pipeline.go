package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"CompetitionScanner/internal/dates"
	"CompetitionScanner/internal/dedup"
	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ingest"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/scanner"
)

// PipelineDeps wires all driven adapters into the crawl pipeline.
type PipelineDeps struct {
	Source      ports.ListingSource
	Store       ports.RecordStore
	Pages       ports.PageFetcher
	Judge       ports.DuplicateJudge
	Notifier    ports.Notifier
	Extractor   *dates.Extractor
	Coordinator *ingest.Coordinator
	Logger      *slog.Logger

	Dedup         dedup.Options
	UseClassifier bool
	PageSize      int
	BatchSize     int
	ItemDelay     time.Duration
	PageDelay     time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Stats counts what one crawl did.
type Stats struct {
	Selector         string
	Collected        int
	Created          int
	Existing         int
	StatusUpdated    int
	SkippedStale     int
	SkippedDuplicate int
	Review           int
	Failed           int
	SourceErrors     int
}

// Digest is the plain-text run summary sent to notifiers.
func (s Stats) Digest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Competition scan (%s)\n", s.Selector)
	fmt.Fprintf(&b, "collected: %d\n", s.Collected)
	fmt.Fprintf(&b, "created: %d\n", s.Created)
	fmt.Fprintf(&b, "existing: %d\n", s.Existing)
	fmt.Fprintf(&b, "status updated: %d\n", s.StatusUpdated)
	fmt.Fprintf(&b, "skipped stale: %d\n", s.SkippedStale)
	fmt.Fprintf(&b, "skipped duplicate: %d\n", s.SkippedDuplicate)
	fmt.Fprintf(&b, "review: %d\n", s.Review)
	fmt.Fprintf(&b, "failed: %d", s.Failed)
	return b.String()
}

// Pipeline implements the competition crawl workflow.
type Pipeline struct {
	source      ports.ListingSource
	store       ports.RecordStore
	pages       ports.PageFetcher
	judge       ports.DuplicateJudge
	notifier    ports.Notifier
	extractor   *dates.Extractor
	coordinator *ingest.Coordinator
	logger      *slog.Logger

	dedupOpts     dedup.Options
	useClassifier bool
	pageSize      int
	batchSize     int
	itemDelay     time.Duration
	pageDelay     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:        deps.Source,
		store:         deps.Store,
		pages:         deps.Pages,
		judge:         deps.Judge,
		notifier:      deps.Notifier,
		extractor:     deps.Extractor,
		coordinator:   deps.Coordinator,
		logger:        deps.Logger,
		dedupOpts:     deps.Dedup,
		useClassifier: deps.UseClassifier,
		pageSize:      deps.PageSize,
		batchSize:     deps.BatchSize,
		itemDelay:     deps.ItemDelay,
		pageDelay:     deps.PageDelay,
		now:           deps.Now,
		sleep:         deps.Sleep,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.extractor == nil {
		p.extractor = dates.NewExtractor(nil)
	}
	if p.coordinator == nil && p.store != nil {
		p.coordinator = ingest.NewCoordinator(p.store, ingest.WithLogger(p.logger))
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sleep == nil {
		p.sleep = scanner.Pause
	}
	if p.batchSize <= 0 {
		p.batchSize = 10
	}
	if p.pageSize <= 0 {
		p.pageSize = 500
	}
	return p
}

// Crawl lists the selected platform, filters and deduplicates the listings,
// then ingests the rest. Only authentication failures and cancellation abort
// the run; anything else is counted and logged.
func (p *Pipeline) Crawl(ctx context.Context, selector string) (Stats, error) {
	stats := Stats{Selector: selector}
	if p.source == nil || p.store == nil {
		return stats, fmt.Errorf("crawl %s: %w", selector, domain.ErrNotConfigured)
	}

	listings, err := p.source.Fetch(ctx, selector)
	if err != nil {
		if len(listings) == 0 {
			return stats, fmt.Errorf("fetch listings: %w", err)
		}
		stats.SourceErrors++
		p.logger.Warn("some sites failed", "platform", selector, "stage", "list", "error", err)
	}
	stats.Collected = len(listings)
	p.logger.Info("collected listings", "platform", selector, "count", len(listings))

	checker, err := dedup.Load(ctx, p.store, p.pageSize, p.judge, p.dedupOpts, p.logger)
	if err != nil {
		return stats, err
	}

	submissions := 0
	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		submitted, err := p.process(ctx, checker, listing, &stats)
		if err != nil {
			return stats, err
		}
		if !submitted {
			continue
		}
		submissions++

		if err := p.sleep(ctx, p.itemDelay); err != nil {
			return stats, err
		}
		if submissions%p.batchSize == 0 {
			if err := p.sleep(ctx, p.pageDelay); err != nil {
				return stats, err
			}
		}
	}

	p.logger.Info("crawl finished",
		"platform", selector,
		"collected", stats.Collected,
		"created", stats.Created,
		"existing", stats.Existing,
		"status_updated", stats.StatusUpdated,
		"skipped_stale", stats.SkippedStale,
		"skipped_duplicate", stats.SkippedDuplicate,
		"review", stats.Review,
		"failed", stats.Failed,
	)

	p.notify(ctx, stats)
	return stats, nil
}

// process handles one listing and reports whether it reached the store.
func (p *Pipeline) process(ctx context.Context, checker *dedup.Checker, listing domain.Listing, stats *Stats) (bool, error) {
	log := p.logger.With("item", listing.Name, "platform", listing.Platform)

	period := p.period(ctx, listing)
	item := ingest.Item{
		Name:        listing.Name,
		Link:        listing.Link,
		Description: listing.Description,
		Platform:    listing.Platform,
		Start:       period.Start,
		End:         period.End,
	}
	cand := dedup.Candidate{
		Title:       ingest.StoredTitle(listing.Name),
		Platform:    listing.Platform,
		Link:        listing.Link,
		Description: listing.Description,
	}

	// Finished competitions are never submitted; stored ones are closed by the status refresh.
	if !dates.IsRelevant(period, p.now()) {
		stats.SkippedStale++
		log.Debug("skipping finished competition", "stage", "filter")
		return false, nil
	}

	res := checker.CheckDuplicate(ctx, cand, p.useClassifier)
	switch res.Recommendation {
	case dedup.RecommendSkip:
		stats.SkippedDuplicate++
		log.Info("skipping duplicate", "stage", "dedup", "type", res.Type)
		return false, nil
	case dedup.RecommendReview:
		stats.Review++
		args := []any{"stage", "dedup", "type", res.Type}
		if len(res.SimilarMatches) > 0 {
			top := res.SimilarMatches[0]
			args = append(args, "similar_to", top.Record.Title, "score", top.Score)
		}
		log.Warn("possible duplicate, ingesting for review", args...)
	}

	return p.ingest(ctx, checker, item, stats, log)
}

func (p *Pipeline) ingest(ctx context.Context, checker *dedup.Checker, item ingest.Item, stats *Stats, log *slog.Logger) (bool, error) {
	res, err := p.coordinator.Ingest(ctx, item)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return false, fmt.Errorf("ingest %q: %w", item.Name, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		stats.Failed++
		log.Error("ingest failed", "stage", "ingest", "error", err)
		return !errors.Is(err, domain.ErrValidation), nil
	}

	switch res.Outcome {
	case ingest.OutcomeCreated:
		stats.Created++
		checker.Remember(res.Record)
		log.Info("competition created", "id", res.Record.ID)
	case ingest.OutcomeStatusUpdated:
		stats.StatusUpdated++
		log.Info("competition marked ended", "id", res.Record.ID)
	default:
		stats.Existing++
	}
	return true, nil
}

// period merges scanner dates with dates read from the detail page. The page
// is only fetched when the scanner did not supply an end date.
func (p *Pipeline) period(ctx context.Context, listing domain.Listing) domain.DateRange {
	known := domain.DateRange{Start: listing.Start, End: listing.End}
	if p.pages == nil || listing.Link == "" || known.End != nil {
		return known
	}

	text, err := p.pages.Text(ctx, listing.Link)
	if err != nil {
		p.logger.Warn("detail page unavailable", "item", listing.Name, "stage", "details", "error", err)
		return known
	}
	return dates.Merge(known, p.extractor.Extract(text))
}

func (p *Pipeline) notify(ctx context.Context, stats Stats) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishDigest(ctx, stats.Digest()); err != nil {
		p.logger.Warn("digest not delivered", "stage", "notify", "error", err)
	}
}
