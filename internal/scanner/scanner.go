package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"CompetitionScanner/internal/domain"
)

// Request carries all parameters required to execute a scan of one site.
type Request struct {
	SiteName  string
	Platform  string
	URL       string
	MaxPages  int
	PageDelay time.Duration
	Options   map[string]string
}

// Option returns a site option or def when it is unset.
func (r Request) Option(key, def string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// Pages returns MaxPages, or def when it is not positive.
func (r Request) Pages(def int) int {
	if r.MaxPages > 0 {
		return r.MaxPages
	}
	return def
}

// Scanner captures a single strategy implementation (Baidu, Tianchi, etc.).
// A scanner that fails mid-way returns what it collected together with the error.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Listing, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// Names lists registered scanners in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pause waits d or until ctx is done.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
