package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// settleDelay is how long a rendered page is given for dynamic content
// to load. The retail sites expose no readiness signal to poll, so a
// fixed delay is the only option.
const settleDelay = 2 * time.Second

type RendererOptions struct {
	// RemoteAddr is the host:port of a remote headless Chromium
	// endpoint. When empty, a local browser is launched instead.
	RemoteAddr     string
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
}

func DefaultRendererOptions() *RendererOptions {
	return &RendererOptions{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "en-US",
	}
}

// Renderer drives one headless browser session. A Renderer belongs to a
// single scraping request: it is acquired at scraper construction and
// must be released with Close before the request's result is returned,
// whatever the outcome.
type Renderer struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *RendererOptions
	logger  *slog.Logger
}

func NewRenderer(opts *RendererOptions) (*Renderer, error) {
	if opts == nil {
		opts = DefaultRendererOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var browser playwright.Browser
	if opts.RemoteAddr != "" {
		browser, err = pw.Chromium.ConnectOverCDP("ws://" + opts.RemoteAddr)
		if err != nil {
			pw.Stop()
			return nil, &NetworkError{URL: opts.RemoteAddr, Err: err}
		}
	} else {
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: &opts.Headless,
			Args: []string{
				"--disable-blink-features=AutomationControlled",
				"--disable-dev-shm-usage",
				"--no-sandbox",
				"--user-agent=" + opts.UserAgent,
			},
		})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: &opts.UserAgent,
		Locale:    &opts.Locale,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Renderer{
		pw:      pw,
		browser: browser,
		context: browserCtx,
		opts:    opts,
		logger:  slog.Default().With("component", "renderer"),
	}, nil
}

// RenderPage loads url in a fresh page, waits the settle delay for
// dynamic content and returns the fully rendered HTML.
func (r *Renderer) RenderPage(ctx context.Context, url string) (string, error) {
	page, err := r.context.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page.SetDefaultTimeout(float64(r.opts.Timeout.Milliseconds()))

	r.logger.Debug("rendering page", "url", url)

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(r.opts.Timeout.Milliseconds())),
	}); err != nil {
		return "", &NetworkError{URL: url, Err: err}
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(settleDelay):
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	return html, nil
}

// Close releases the browser session. Safe to call exactly once on
// every return path.
func (r *Renderer) Close() error {
	var errs []error

	if r.context != nil {
		if err := r.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if r.pw != nil {
		if err := r.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
