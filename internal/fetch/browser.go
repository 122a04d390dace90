// internal/fetch/browser.go
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/citypulse/eventharvest/internal/config"
)

// BrowserSession owns a headless Chrome instance shared across a crawl run.
// The session is created once per batch and must be closed by the caller;
// each FetchHTML call opens its own tab and closes it on every exit path so
// per-page memory stays bounded over a large batch.
type BrowserSession struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	cfg         config.BrowserConfig
}

// NewBrowserSession launches the browser process. Callers must Close the
// session when the batch finishes, including on error paths.
func NewBrowserSession(cfg config.BrowserConfig) (*BrowserSession, error) {
	if cfg.NavTimeout == 0 {
		cfg.NavTimeout = config.DefaultNavTimeout
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = config.DefaultSettleDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgents()[0]
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
		chromedp.UserAgent(cfg.UserAgent),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserSession{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		cfg:         cfg,
	}, nil
}

// FetchHTML navigates a fresh tab to the URL, waits for the page to settle,
// and returns the rendered DOM. The tab is closed regardless of outcome.
func (s *BrowserSession) FetchHTML(ctx context.Context, targetURL string) (*RawPage, error) {
	if s == nil || s.allocCtx == nil {
		return nil, fmt.Errorf("browser session not initialized")
	}

	tabCtx, tabCancel := chromedp.NewContext(s.allocCtx)
	defer tabCancel()

	navCtx, navCancel := context.WithTimeout(tabCtx, s.cfg.NavTimeout.Std())
	defer navCancel()

	// The tab descends from the allocator, not the caller, so propagate the
	// caller's cancellation by hand. Without this a canceled trigger request
	// or a shutdown signal could not interrupt an in-flight navigation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			navCancel()
		case <-done:
		}
	}()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(s.cfg.SettleDelay.Std()),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		kind := KindNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return nil, &FetchError{URL: targetURL, Kind: kind, Err: err}
	}

	return &RawPage{
		URL:        targetURL,
		HTML:       html,
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}, nil
}

// Close shuts down the browser process.
func (s *BrowserSession) Close() error {
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	return nil
}
