package report

import (
	"strings"
	"testing"

	"CompetitionScanner/internal/dedup"
	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/usecase"
)

func TestCrawlListsEveryCounter(t *testing.T) {
	t.Parallel()

	out := Crawl(usecase.Stats{Selector: "baidu", Collected: 7, Created: 3, SkippedStale: 2, Failed: 1, SourceErrors: 1})

	for _, want := range []string{"Crawl baidu", "collected", "7", "created", "skipped stale", "failed", "sites failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRefreshListsCounters(t *testing.T) {
	t.Parallel()

	out := Refresh(usecase.RefreshStats{Checked: 4, Updated: 2})
	for _, want := range []string{"Status refresh", "checked", "updated", "2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestDuplicateShowsTopThreeMatches(t *testing.T) {
	t.Parallel()

	res := dedup.Result{
		IsDuplicate:    true,
		Type:           dedup.TypeSimilar,
		Recommendation: dedup.RecommendReview,
		SimilarMatches: []dedup.Match{
			{Record: domain.Competition{Title: "Alpha Cup"}, Score: 0.95},
			{Record: domain.Competition{Title: "Beta Cup"}, Score: 0.9},
			{Record: domain.Competition{Title: "Gamma Cup"}, Score: 0.85},
			{Record: domain.Competition{Title: "Delta Cup"}, Score: 0.81},
		},
		Verdict: &domain.Verdict{IsDuplicate: true, Confidence: 0.85, Reason: "same organizer", MostSimilarTitle: "Alpha Cup"},
	}

	out := Duplicate(dedup.Candidate{Title: "Alpha Cup 2025"}, res)

	for _, want := range []string{"Alpha Cup 2025", "REVIEW", "similar", "Gamma Cup", "0.95", "confidence=0.85", "same organizer"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Delta Cup") {
		t.Fatalf("only the top three matches should be listed:\n%s", out)
	}
}

func TestDuplicateWithoutMatches(t *testing.T) {
	t.Parallel()

	out := Duplicate(dedup.Candidate{Title: "Fresh Cup"}, dedup.Result{Type: dedup.TypeNone, Recommendation: dedup.RecommendAdd})
	if !strings.Contains(out, "ADD") || strings.Contains(out, "Similar records") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
