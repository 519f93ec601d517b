package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CompetitionScanner/internal/config"
	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/scanner"
)

// StrategySource implements ListingSource via registered scanner strategies.
type StrategySource struct {
	registry  *scanner.Registry
	sites     []config.SiteConfig
	pageDelay time.Duration
	logger    *slog.Logger
}

var _ ports.ListingSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, pageDelay time.Duration, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:  reg,
		sites:     sites,
		pageDelay: pageDelay,
		logger:    log,
	}
}

// Fetch runs the scanners of every site matching selector ("all" for every
// site). A failing site does not stop the others: its partial results are
// kept and its error is joined into the returned error.
func (s *StrategySource) Fetch(ctx context.Context, selector string) ([]domain.Listing, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	sites := config.Config{Sites: s.sites}.SitesFor(selector)
	if len(sites) == 0 {
		return nil, fmt.Errorf("no site configured for platform %q", selector)
	}
	s.debug("fetch listings", "selector", selector, "sites", len(sites))

	var (
		aggregated []domain.Listing
		errs       []error
	)
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return aggregated, err
		}

		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			errs = append(errs, fmt.Errorf("site %s: %w", site.Name, err))
			continue
		}

		platform := site.Platform
		if platform == "" {
			platform = site.Name
		}
		req := scanner.Request{
			SiteName:  site.Name,
			Platform:  platform,
			URL:       site.URL,
			MaxPages:  site.MaxPages,
			PageDelay: s.pageDelay,
			Options:   site.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			s.warn("site scan failed", "site", site.Name, "collected", len(results), "error", err)
			errs = append(errs, fmt.Errorf("scan site %s: %w", site.Name, err))
		}

		for i := range results {
			if results[i].Platform == "" {
				results[i].Platform = platform
			}
		}
		s.debug("site produced listings", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_listings", len(aggregated))
	return aggregated, errors.Join(errs...)
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
