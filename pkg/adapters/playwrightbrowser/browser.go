// Package playwrightbrowser provides an alternate renderer session driver
// backed by playwright-go. It is useful where the DevTools transport is
// unavailable or a managed browser install is preferred.
package playwrightbrowser

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/ports"
)

// Browser implements ports.Browser using Playwright's Chromium driver.
type Browser struct {
	mu sync.Mutex

	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	opened  bool
}

// New creates a new Browser.
func New() *Browser {
	return &Browser{}
}

// Open starts the Playwright driver, launches Chromium and loads the target.
func (b *Browser) Open(ctx context.Context, target string, opts ports.BrowserOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.opened {
		return &capture.RenderInitError{Target: target, Err: fmt.Errorf("session already open")}
	}

	pw, err := playwright.Run()
	if err != nil {
		return &capture.RenderInitError{Target: target, Err: fmt.Errorf("start playwright: %w", err)}
	}
	b.pw = pw

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: opts.ProxyServer}
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		b.closeLocked()
		return &capture.RenderInitError{Target: target, Err: fmt.Errorf("launch chromium: %w", err)}
	}
	b.browser = browser

	pageOpts := playwright.BrowserNewPageOptions{
		IgnoreHttpsErrors: playwright.Bool(opts.IgnoreHTTPSErrors),
	}
	if opts.UserAgent != "" {
		pageOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		pageOpts.Viewport = &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		}
	}
	page, err := browser.NewPage(pageOpts)
	if err != nil {
		b.closeLocked()
		return &capture.RenderInitError{Target: target, Err: fmt.Errorf("new page: %w", err)}
	}
	b.page = page

	if len(opts.Headers) > 0 {
		if err := page.SetExtraHTTPHeaders(opts.Headers); err != nil {
			b.closeLocked()
			return &capture.RenderInitError{Target: target, Err: fmt.Errorf("set headers: %w", err)}
		}
	}

	if _, err := page.Goto(target); err != nil {
		b.closeLocked()
		return &capture.RenderInitError{Target: target, Err: fmt.Errorf("goto: %w", err)}
	}

	b.opened = true
	return nil
}

// CaptureFrame snapshots the page as PNG.
func (b *Browser) CaptureFrame(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	page := b.page
	opened := b.opened
	b.mu.Unlock()

	if !opened || page == nil {
		return nil, &capture.RenderInitError{Err: fmt.Errorf("session not open")}
	}

	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		if page.IsClosed() {
			return nil, &capture.RenderInitError{Err: fmt.Errorf("page closed: %w", err)}
		}
		return nil, &capture.RenderTransientError{Err: err}
	}
	return data, nil
}

// Close tears down page, browser and driver. Idempotent.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeLocked()
	return nil
}

func (b *Browser) closeLocked() {
	b.opened = false
	if b.page != nil {
		b.page.Close()
		b.page = nil
	}
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.pw != nil {
		b.pw.Stop()
		b.pw = nil
	}
}

// Ensure Browser implements ports.Browser
var _ ports.Browser = (*Browser)(nil)
