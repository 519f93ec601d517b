package dates

import (
	"time"

	"CompetitionScanner/internal/domain"
)

// ClassifyStatus reports ENDED only when a known end lies before now.
// Missing dates keep an item ONGOING.
func ClassifyStatus(start, end *time.Time, now time.Time) domain.Status {
	if end != nil && end.Before(now) {
		return domain.StatusEnded
	}
	return domain.StatusOngoing
}

// IsRelevant decides whether a scraped item is still worth ingesting.
// Competitions that have not started yet are kept.
func IsRelevant(r domain.DateRange, now time.Time) bool {
	return ClassifyStatus(r.Start, r.End, now) == domain.StatusOngoing
}

// Merge prefers dates supplied by a source API over those read from page text.
func Merge(primary, fallback domain.DateRange) domain.DateRange {
	merged := primary
	if merged.Start == nil {
		merged.Start = fallback.Start
	}
	if merged.End == nil {
		merged.End = fallback.End
	}
	return merged
}
