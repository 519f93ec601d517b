package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/textutil"
)

// DuplicateType names the rule that fired.
type DuplicateType string

const (
	TypeNone     DuplicateType = "none"
	TypeExact    DuplicateType = "exact"
	TypeLink     DuplicateType = "link"
	TypeSimilar  DuplicateType = "similar"
	TypeExternal DuplicateType = "external-detected"
)

// Recommendation tells the caller what to do with the item.
type Recommendation string

const (
	RecommendAdd    Recommendation = "add"
	RecommendSkip   Recommendation = "skip"
	RecommendReview Recommendation = "review"
)

// Match pairs an existing record with its title similarity.
type Match struct {
	Record        domain.Competition
	Score         float64
	PlatformMatch bool
}

// Result is the outcome of CheckDuplicate.
type Result struct {
	IsDuplicate    bool
	Type           DuplicateType
	ExactMatch     *domain.Competition
	SimilarMatches []Match
	Verdict        *domain.Verdict
	Recommendation Recommendation
}

// Candidate is the new item under test. Platform, Link and Description are optional.
type Candidate struct {
	Title       string
	Platform    string
	Link        string
	Description string
}

// Options tunes the checker.
type Options struct {
	SimilarityThreshold float64
	ReviewThreshold     float64
	SampleSize          int
	DescriptionRunes    int
}

// DefaultOptions mirrors the thresholds the store was curated with.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: 0.8,
		ReviewThreshold:     0.9,
		SampleSize:          10,
		DescriptionRunes:    100,
	}
}

const (
	externalSkipConfidence   = 0.9
	externalReviewConfidence = 0.8
)

// Checker compares new items against a snapshot of the store taken at construction.
type Checker struct {
	records []domain.Competition
	judge   ports.DuplicateJudge
	opts    Options
	logger  *slog.Logger
}

// NewChecker wraps an already loaded snapshot. judge may be nil.
func NewChecker(records []domain.Competition, judge ports.DuplicateJudge, opts Options, logger *slog.Logger) *Checker {
	defaults := DefaultOptions()
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if opts.ReviewThreshold <= 0 {
		opts.ReviewThreshold = defaults.ReviewThreshold
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = defaults.SampleSize
	}
	if opts.DescriptionRunes <= 0 {
		opts.DescriptionRunes = defaults.DescriptionRunes
	}

	snapshot := make([]domain.Competition, len(records))
	copy(snapshot, records)

	return &Checker{records: snapshot, judge: judge, opts: opts, logger: logger}
}

// Load takes the snapshot from store once.
func Load(ctx context.Context, store ports.RecordStore, pageSize int, judge ports.DuplicateJudge, opts Options, logger *slog.Logger) (*Checker, error) {
	records, err := store.ListAll(ctx, pageSize)
	if err != nil {
		return nil, fmt.Errorf("load existing records: %w", err)
	}
	if logger != nil {
		logger.Info("loaded existing records", "count", len(records))
	}
	return NewChecker(records, judge, opts, logger), nil
}

// Size reports how many records the snapshot holds.
func (c *Checker) Size() int {
	return len(c.records)
}

// Remember adds a record created during this run to the snapshot.
func (c *Checker) Remember(record domain.Competition) {
	c.records = append(c.records, record)
}

// ExactMatch finds a record with the same title, and the same platform when one is given.
func (c *Checker) ExactMatch(title, platform string) *domain.Competition {
	for i := range c.records {
		rec := c.records[i]
		if rec.Title != title {
			continue
		}
		if platform == "" || rec.Platform == platform {
			return &rec
		}
	}
	return nil
}

// SimilarMatches returns records at or above the similarity threshold,
// same-platform matches first, then by descending score.
func (c *Checker) SimilarMatches(title, platform string) []Match {
	var matches []Match
	for _, rec := range c.records {
		if rec.Title == "" {
			continue
		}
		score := Similarity(title, rec.Title)
		if score < c.opts.SimilarityThreshold {
			continue
		}
		matches = append(matches, Match{
			Record:        rec,
			Score:         score,
			PlatformMatch: platform == "" || rec.Platform == platform,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].PlatformMatch != matches[j].PlatformMatch {
			return matches[i].PlatformMatch
		}
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// CheckDuplicate applies, in order, exact title, link, similarity and the
// external classifier. The first two short-circuit.
func (c *Checker) CheckDuplicate(ctx context.Context, cand Candidate, useClassifier bool) Result {
	result := Result{Type: TypeNone, Recommendation: RecommendAdd}

	if exact := c.ExactMatch(cand.Title, cand.Platform); exact != nil {
		result.IsDuplicate = true
		result.Type = TypeExact
		result.ExactMatch = exact
		result.Recommendation = RecommendSkip
		return result
	}

	if cand.Link != "" {
		for i := range c.records {
			if c.records[i].Link == cand.Link {
				rec := c.records[i]
				result.IsDuplicate = true
				result.Type = TypeLink
				result.ExactMatch = &rec
				result.Recommendation = RecommendSkip
				return result
			}
		}
	}

	result.SimilarMatches = c.SimilarMatches(cand.Title, cand.Platform)
	if len(result.SimilarMatches) > 0 && result.SimilarMatches[0].Score >= c.opts.ReviewThreshold {
		result.IsDuplicate = true
		result.Type = TypeSimilar
		result.Recommendation = RecommendReview
	}

	if !useClassifier || cand.Description == "" || c.judge == nil {
		return result
	}

	verdict, err := c.judge.DetectDuplicate(ctx, cand.Title, cand.Description, c.sample(result.SimilarMatches))
	if err != nil {
		c.warn("duplicate classifier unavailable", "item", cand.Title, "stage", "dedup", "error", err)
		return result
	}
	result.Verdict = &verdict

	switch {
	case verdict.IsDuplicate && verdict.Confidence >= externalSkipConfidence:
		result.IsDuplicate = true
		result.Type = TypeExternal
		result.Recommendation = RecommendSkip
	case verdict.IsDuplicate && verdict.Confidence >= externalReviewConfidence:
		result.Recommendation = RecommendReview
	}

	return result
}

// sample picks at most SampleSize records for the classifier prompt:
// similar matches first, then snapshot order.
func (c *Checker) sample(similar []Match) []domain.Competition {
	out := make([]domain.Competition, 0, c.opts.SampleSize)
	seen := map[string]struct{}{}

	add := func(rec domain.Competition) {
		if len(out) >= c.opts.SampleSize || rec.Title == "" {
			return
		}
		key := rec.ID + "\x00" + rec.Title
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		rec.Description = textutil.Truncate(rec.Description, c.opts.DescriptionRunes)
		out = append(out, rec)
	}

	for _, m := range similar {
		add(m.Record)
	}
	for _, rec := range c.records {
		add(rec)
	}
	return out
}

func (c *Checker) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
