package ports

import (
	"context"
	"time"

	"CompetitionScanner/internal/domain"
)

// ListingSource pulls competition listings from the configured sites.
// selector is a platform name or "all".
type ListingSource interface {
	Fetch(ctx context.Context, selector string) ([]domain.Listing, error)
}

// RecordStore is the remote tabular backend holding competitions.
type RecordStore interface {
	Search(ctx context.Context, field domain.Field, value string) ([]domain.Competition, error)
	Create(ctx context.Context, record domain.Competition) (string, error)
	Update(ctx context.Context, id string, patch domain.Patch) error
	ListAll(ctx context.Context, pageSize int) ([]domain.Competition, error)
}

// Labeler assigns categories and a difficulty to a competition.
type Labeler interface {
	Classify(ctx context.Context, title, description string) (domain.Labels, error)
}

// DuplicateJudge asks an external classifier whether an item repeats one of sample.
type DuplicateJudge interface {
	DetectDuplicate(ctx context.Context, title, description string, sample []domain.Competition) (domain.Verdict, error)
}

// PageFetcher returns the visible text of a detail page.
type PageFetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
