package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"CompetitionScanner/internal/config"
	"CompetitionScanner/internal/dates"
	"CompetitionScanner/internal/dedup"
	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/infrastructure/browser"
	"CompetitionScanner/internal/infrastructure/feishu"
	"CompetitionScanner/internal/infrastructure/llm"
	"CompetitionScanner/internal/infrastructure/parser"
	"CompetitionScanner/internal/infrastructure/scheduler"
	"CompetitionScanner/internal/infrastructure/storage"
	"CompetitionScanner/internal/infrastructure/telegram"
	"CompetitionScanner/internal/ingest"
	"CompetitionScanner/internal/logging"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/report"
	"CompetitionScanner/internal/retry"
	"CompetitionScanner/internal/scanner"
	"CompetitionScanner/internal/usecase"
)

// SelectorUpdateStatus refreshes stored statuses instead of crawling.
const SelectorUpdateStatus = "update-status"

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.RecordStore
	judge     ports.DuplicateJudge
	pipeline  *usecase.Pipeline
	refresher *usecase.Refresher
	scheduler *usecase.Scheduler
	closers   []func() error
}

// New builds every adapter named by cfg. The caller must Close the result.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithWriters(os.Stdout, nil, cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	httpClient := &http.Client{Timeout: cfg.Ingest.RequestTimeout}

	var (
		pages ports.PageFetcher
		html  parser.HTMLSource
	)
	switch cfg.Renderer.Kind {
	case config.RendererChrome:
		renderer := browser.NewChromeRenderer(cfg.Renderer.WaitTimeout, cfg.Renderer.UserAgent, baseLogger.With("component", "browser"))
		a.closers = append(a.closers, func() error { renderer.Close(); return nil })
		pages, html = renderer, renderer
	default:
		pages = parser.NewHTTPPageFetcher(httpClient, cfg.Renderer.UserAgent)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewBaiduScanner(httpClient, baseLogger.With("component", "scanner.baidu")))
	registry.Register(parser.NewAliyunScanner(httpClient, baseLogger.With("component", "scanner.aliyun")))
	registry.Register(parser.NewTencentScanner(httpClient, html, baseLogger.With("component", "scanner.tencent")))
	registry.Register(parser.NewWechatScanner(httpClient, baseLogger.With("component", "scanner.wechat")))

	source := parser.NewStrategySource(registry, cfg.Sites, cfg.Ingest.PageDelay, baseLogger.With("component", "source"))

	var labeler ports.Labeler
	if client, err := llm.NewClient(cfg.Classifier); err == nil {
		classifier := llm.NewClassifier(client, baseLogger.With("component", "classifier"))
		labeler, a.judge = classifier, classifier
	} else {
		baseLogger.Warn("classifier disabled", "error", err)
	}

	var fallback ports.Labeler
	if cfg.Classifier.Fallback == config.FallbackKeyword {
		fallback = ingest.KeywordLabeler{}
	}

	policy := retry.New(cfg.Ingest.MaxRetries, cfg.Ingest.RetryBaseDelay)
	policy.Logger = baseLogger.With("component", "retry")

	extractor := dates.NewExtractor(cfg.Dates.Location(), dates.WithLogger(baseLogger.With("component", "dates")))

	coordinator := ingest.NewCoordinator(store,
		ingest.WithLabeler(labeler),
		ingest.WithFallbackLabeler(fallback),
		ingest.WithRetryPolicy(policy),
		ingest.WithLogger(baseLogger.With("component", "ingest")),
	)

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram); tg.Enabled() {
		notifier = tg
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:        source,
		Store:         store,
		Pages:         pages,
		Judge:         a.judge,
		Notifier:      notifier,
		Extractor:     extractor,
		Coordinator:   coordinator,
		Logger:        baseLogger.With("component", "pipeline"),
		Dedup:         a.dedupOptions(0),
		UseClassifier: cfg.Dedup.UseClassifier,
		PageSize:      cfg.Store.PageSize,
		BatchSize:     cfg.Ingest.BatchSize,
		ItemDelay:     cfg.Ingest.ItemDelay,
		PageDelay:     cfg.Ingest.PageDelay,
	})

	a.refresher = usecase.NewRefresher(usecase.RefreshDeps{
		Store:     store,
		Pages:     pages,
		Extractor: extractor,
		Policy:    &policy,
		Logger:    baseLogger.With("component", "refresh"),
		PageSize:  cfg.Store.PageSize,
		Delay:     cfg.Ingest.StatusUpdateDelay,
	})

	driver := scheduler.NewDailyScheduler(cfg.Scheduler.Hour, cfg.Scheduler.Minute, cfg.Scheduler.Location(), baseLogger.With("component", "scheduler"))
	a.scheduler = usecase.NewScheduler(driver, a.pipeline, a.refresher, baseLogger.With("component", "schedule"))

	return a, nil
}

func (a *Application) openStore(ctx context.Context) (ports.RecordStore, error) {
	switch a.cfg.Store.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		store, err := storage.Open(ctx, a.cfg.Store.Driver, a.cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.DriverFeishu, "":
		client, err := feishu.NewClient(a.cfg.Feishu, a.logger.With("component", "feishu"))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *Application) dedupOptions(threshold float64) dedup.Options {
	opts := dedup.DefaultOptions()
	if a.cfg.Dedup.SimilarityThreshold > 0 {
		opts.SimilarityThreshold = a.cfg.Dedup.SimilarityThreshold
	}
	if a.cfg.Dedup.ReviewThreshold > 0 {
		opts.ReviewThreshold = a.cfg.Dedup.ReviewThreshold
	}
	if a.cfg.Dedup.SampleSize > 0 {
		opts.SampleSize = a.cfg.Dedup.SampleSize
	}
	if threshold > 0 {
		opts.SimilarityThreshold = threshold
	}
	return opts
}

// Run crawls the selected platform, or refreshes statuses for
// SelectorUpdateStatus, and writes the summary table to out.
func (a *Application) Run(ctx context.Context, selector string, out io.Writer) error {
	if selector == SelectorUpdateStatus {
		stats, err := a.refresher.Run(ctx)
		fmt.Fprintln(out, report.Refresh(stats))
		return err
	}

	if len(a.cfg.SitesFor(selector)) == 0 {
		return fmt.Errorf("%w: no site configured for platform %q", domain.ErrValidation, selector)
	}
	stats, err := a.pipeline.Crawl(ctx, selector)
	fmt.Fprintln(out, report.Crawl(stats))
	return err
}

// CheckDuplicate runs one candidate against the current store contents.
// threshold overrides the configured similarity threshold when positive.
func (a *Application) CheckDuplicate(ctx context.Context, cand dedup.Candidate, threshold float64) (dedup.Result, error) {
	checker, err := dedup.Load(ctx, a.store, a.cfg.Store.PageSize, a.judge, a.dedupOptions(threshold), a.logger.With("component", "dedup"))
	if err != nil {
		return dedup.Result{}, err
	}
	return checker.CheckDuplicate(ctx, cand, a.cfg.Dedup.UseClassifier), nil
}

// Schedule runs the daily job until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"hour", a.cfg.Scheduler.Hour,
		"minute", a.cfg.Scheduler.Minute,
		"timezone", a.cfg.Scheduler.Location().String(),
	)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases stores and browsers.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
