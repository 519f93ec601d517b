package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/retry"
)

type fakeStore struct {
	records   []domain.Competition
	createErr []error
	searches  int
	creates   int
	updates   []domain.Patch
}

func (s *fakeStore) Search(_ context.Context, field domain.Field, value string) ([]domain.Competition, error) {
	s.searches++
	var out []domain.Competition
	for _, r := range s.records {
		if field == domain.FieldLink && r.Link == value {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, rec domain.Competition) (string, error) {
	s.creates++
	if len(s.createErr) > 0 {
		err := s.createErr[0]
		s.createErr = s.createErr[1:]
		if err != nil {
			return "", err
		}
	}
	rec.ID = fmt.Sprintf("rec%d", len(s.records)+1)
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *fakeStore) Update(_ context.Context, id string, patch domain.Patch) error {
	s.updates = append(s.updates, patch)
	for i := range s.records {
		if s.records[i].ID == id && patch.Status != nil {
			s.records[i].Status = *patch.Status
		}
	}
	return nil
}

func (s *fakeStore) ListAll(context.Context, int) ([]domain.Competition, error) {
	return s.records, nil
}

type fakeLabeler struct {
	labels domain.Labels
	err    error
	calls  int
}

func (f *fakeLabeler) Classify(context.Context, string, string) (domain.Labels, error) {
	f.calls++
	return f.labels, f.err
}

type instantTimer struct{ c chan time.Time }

func (t *instantTimer) Start(time.Duration) { t.c <- time.Time{} }
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.c }

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestCoordinator(store *fakeStore, opts ...Option) *Coordinator {
	policy := retry.New(3, time.Second)
	policy.Timer = &instantTimer{c: make(chan time.Time, 1)}
	base := []Option{
		WithRetryPolicy(policy),
		WithClock(func() time.Time { return now }),
	}
	return NewCoordinator(store, append(base, opts...)...)
}

func ptr(t time.Time) *time.Time { return &t }

func TestIngestTwiceCreatesOnce(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	labeler := &fakeLabeler{labels: domain.Labels{Categories: []string{"MCP"}, Difficulty: "L3"}}
	c := newTestCoordinator(store, WithLabeler(labeler))

	item := Item{Name: "MCP Builders Cup", Link: "https://example.com/mcp", End: ptr(now.Add(48 * time.Hour))}

	first, err := c.Ingest(context.Background(), item)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := c.Ingest(context.Background(), item)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if first.Outcome != OutcomeCreated || second.Outcome != OutcomeExisting {
		t.Fatalf("unexpected outcomes: %s, %s", first.Outcome, second.Outcome)
	}
	if store.creates != 1 || len(store.updates) != 0 {
		t.Fatalf("expected 1 create and 0 updates, got %d and %d", store.creates, len(store.updates))
	}
	if second.Record.ID != first.Record.ID {
		t.Fatalf("expected the same record, got %s and %s", first.Record.ID, second.Record.ID)
	}
}

func TestIngestEndedExistingUpdatesOnce(t *testing.T) {
	t.Parallel()

	store := &fakeStore{records: []domain.Competition{
		{ID: "rec1", Title: "Old Cup", Link: "https://example.com/old", Status: domain.StatusOngoing},
	}}
	c := newTestCoordinator(store)
	item := Item{Name: "Old Cup", Link: "https://example.com/old", End: ptr(now.Add(-24 * time.Hour))}

	res, err := c.Ingest(context.Background(), item)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Outcome != OutcomeStatusUpdated || res.Record.Status != domain.StatusEnded {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = c.Ingest(context.Background(), item)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if res.Outcome != OutcomeExisting {
		t.Fatalf("expected no-op on ended record, got %s", res.Outcome)
	}
	if len(store.updates) != 1 || store.creates != 0 {
		t.Fatalf("expected exactly one update and no create, got %d updates, %d creates", len(store.updates), store.creates)
	}
}

func TestIngestValidationMakesNoStoreCalls(t *testing.T) {
	t.Parallel()

	cases := []Item{
		{Name: "", Link: "https://example.com"},
		{Name: "Cup", Link: "   "},
	}
	for _, item := range cases {
		store := &fakeStore{}
		c := newTestCoordinator(store)
		_, err := c.Ingest(context.Background(), item)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", item, err)
		}
		if store.searches != 0 || store.creates != 0 {
			t.Fatalf("expected no store calls for %+v", item)
		}
	}
}

func TestIngestClassifierFailureUsesDefaults(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	labeler := &fakeLabeler{err: errors.New("dial tcp: connection refused")}
	c := newTestCoordinator(store, WithLabeler(labeler))

	res, err := c.Ingest(context.Background(), Item{Name: "AI Video Jam", Link: "https://example.com/v"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	want := DefaultLabels()
	got := domain.Labels{Categories: res.Record.Categories, Difficulty: res.Record.Difficulty}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	if res.Record.Status != domain.StatusOngoing {
		t.Fatalf("expected ongoing status, got %s", res.Record.Status)
	}
}

func TestIngestFallbackLabeler(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	labeler := &fakeLabeler{err: domain.ErrNotConfigured}
	c := newTestCoordinator(store, WithLabeler(labeler), WithFallbackLabeler(KeywordLabeler{}))

	res, err := c.Ingest(context.Background(), Item{Name: "AI Video Jam", Link: "https://example.com/v"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if diff := cmp.Diff([]string{domain.CategoryVideo}, res.Record.Categories); diff != "" {
		t.Fatalf("unexpected categories (-want +got):\n%s", diff)
	}
}

func TestIngestKeepsSuppliedLabels(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	labeler := &fakeLabeler{labels: domain.Labels{Categories: []string{"MCP"}, Difficulty: "L4"}}
	c := newTestCoordinator(store, WithLabeler(labeler))

	res, err := c.Ingest(context.Background(), Item{
		Name:       "Coding Sprint",
		Link:       "https://example.com/c",
		Categories: []string{domain.CategoryCoding},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if labeler.calls != 1 {
		t.Fatalf("expected classifier to fill the missing difficulty")
	}
	if diff := cmp.Diff([]string{domain.CategoryCoding}, res.Record.Categories); diff != "" {
		t.Fatalf("supplied categories overwritten (-want +got):\n%s", diff)
	}
	if res.Record.Difficulty != "L4" {
		t.Fatalf("expected L4, got %s", res.Record.Difficulty)
	}
}

func TestIngestRetriesTransientCreate(t *testing.T) {
	t.Parallel()

	store := &fakeStore{createErr: []error{domain.ErrTransient, domain.ErrTransient}}
	c := newTestCoordinator(store)

	res, err := c.Ingest(context.Background(), Item{Name: "Cup", Link: "https://example.com/x"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Outcome != OutcomeCreated || store.creates != 3 {
		t.Fatalf("expected created after 3 attempts, got %s after %d", res.Outcome, store.creates)
	}
}

func TestIngestAuthAbortsWithoutRetry(t *testing.T) {
	t.Parallel()

	store := &fakeStore{createErr: []error{fmt.Errorf("status 401: %w", domain.ErrAuth)}}
	c := newTestCoordinator(store)

	_, err := c.Ingest(context.Background(), Item{Name: "Cup", Link: "https://example.com/x"})
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if store.creates != 1 {
		t.Fatalf("expected a single create attempt, got %d", store.creates)
	}
}

func TestIngestFailsAfterBudget(t *testing.T) {
	t.Parallel()

	other := errors.New("code 1254045")
	store := &fakeStore{createErr: []error{other, other, other}}
	c := newTestCoordinator(store)

	_, err := c.Ingest(context.Background(), Item{Name: "Cup", Link: "https://example.com/x"})
	if !errors.Is(err, other) {
		t.Fatalf("expected last store error, got %v", err)
	}
	if store.creates != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.creates)
	}
}

func TestIngestConflictIsExisting(t *testing.T) {
	t.Parallel()

	store := &fakeStore{createErr: []error{domain.ErrConflict}}
	c := newTestCoordinator(store)

	res, err := c.Ingest(context.Background(), Item{Name: "Cup", Link: "https://example.com/x"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Outcome != OutcomeExisting || store.creates != 1 {
		t.Fatalf("expected existing after one attempt, got %s after %d", res.Outcome, store.creates)
	}
}

func TestIngestSanitizesFields(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	c := newTestCoordinator(store)

	long := make([]rune, 600)
	for i := range long {
		long[i] = '赛'
	}
	res, err := c.Ingest(context.Background(), Item{
		Name: "  第一届\n★创新★  " + string(long),
		Link: " https://example.com/s ",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n := len([]rune(res.Record.Title)); n != 500 {
		t.Fatalf("expected title truncated to 500 runes, got %d", n)
	}
	if got := string([]rune(res.Record.Title)[:8]); got != "第一届 创新 赛" {
		t.Fatalf("unexpected sanitized prefix %q", got)
	}
	if res.Record.Link != "https://example.com/s" {
		t.Fatalf("unexpected link %q", res.Record.Link)
	}
}
