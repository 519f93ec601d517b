// Package browser renders script-heavy pages in headless Chrome.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"CompetitionScanner/internal/ports"
)

// ChromeRenderer shares one browser process across calls; every call opens
// its own tab.
type ChromeRenderer struct {
	wait      time.Duration
	settle    time.Duration
	userAgent string
	logger    *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

var _ ports.PageFetcher = (*ChromeRenderer)(nil)

// NewChromeRenderer does not start Chrome until the first page is requested.
// wait bounds each page load.
func NewChromeRenderer(wait time.Duration, userAgent string, logger *slog.Logger) *ChromeRenderer {
	if wait <= 0 {
		wait = 20 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChromeRenderer{
		wait:      wait,
		settle:    2 * time.Second,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Text returns document.body.innerText after the page settles.
func (r *ChromeRenderer) Text(ctx context.Context, url string) (string, error) {
	var text string
	err := r.run(ctx, url, chromedp.Text("body", &text, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// HTML returns the rendered markup of the whole document.
func (r *ChromeRenderer) HTML(ctx context.Context, url string) (string, error) {
	var markup string
	if err := r.run(ctx, url, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return markup, nil
}

// Close stops the browser process.
func (r *ChromeRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCancel != nil {
		r.browserCancel()
		r.allocCancel()
		r.browserCtx, r.browserCancel, r.allocCancel = nil, nil, nil
	}
}

func (r *ChromeRenderer) run(ctx context.Context, url string, read chromedp.Action) error {
	browserCtx, err := r.browser()
	if err != nil {
		return err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.wait)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	r.logger.Debug("render page", "url", url)
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.settle),
		read,
	)
	if err != nil {
		return fmt.Errorf("render %s: %w", url, err)
	}
	return nil
}

func (r *ChromeRenderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx != nil {
		return r.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.userAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	r.browserCtx, r.browserCancel, r.allocCancel = browserCtx, browserCancel, allocCancel
	return browserCtx, nil
}
