// Package chromebrowser provides a renderer session implementation using
// chromedp over the Chrome DevTools protocol.
package chromebrowser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/ports"
)

// Browser implements ports.Browser using chromedp.
type Browser struct {
	mu sync.Mutex

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	opened      bool
}

// New creates a new Browser.
func New() *Browser {
	return &Browser{}
}

// Open launches Chrome and navigates to the target. Any failure here is a
// RenderInitError: the session could not establish its rendering surface.
func (b *Browser) Open(ctx context.Context, target string, opts ports.BrowserOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.opened {
		return &capture.RenderInitError{Target: target, Err: fmt.Errorf("session already open")}
	}

	chromedpOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("hide-scrollbars", true),
	}

	if opts.Headless {
		chromedpOpts = append(chromedpOpts, chromedp.Flag("headless", "new"))
	}

	chromePath := ResolveChromePath(opts.ChromePath)
	if chromePath == "" {
		return &capture.RenderInitError{
			Target: target,
			Err:    fmt.Errorf("chrome not found: install Chrome/Chromium, set CHROME_PATH, or configure chrome_path"),
		}
	}
	chromedpOpts = append(chromedpOpts, chromedp.ExecPath(chromePath))

	if opts.Incognito {
		chromedpOpts = append(chromedpOpts, chromedp.Flag("incognito", true))
	}
	if opts.UserAgent != "" {
		chromedpOpts = append(chromedpOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		chromedpOpts = append(chromedpOpts,
			chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
			chromedp.Flag("window-size", fmt.Sprintf("%d,%d", opts.ViewportWidth, opts.ViewportHeight)))
	}
	if opts.IgnoreHTTPSErrors {
		chromedpOpts = append(chromedpOpts,
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.Flag("ignore-certificate-errors-spki-list", true),
			chromedp.Flag("allow-insecure-localhost", true))
	}
	if opts.ProxyServer != "" {
		chromedpOpts = append(chromedpOpts, chromedp.Flag("proxy-server", opts.ProxyServer))
	}

	// Flags for server/container execution
	chromedpOpts = append(chromedpOpts,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-namespace-sandbox", true),
		chromedp.Flag("disable-seccomp-filter-sandbox", true),
		chromedp.Flag("no-zygote", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, chromedpOpts...)
	b.ctx, b.cancel = chromedp.NewContext(b.allocCtx)

	if len(opts.Headers) > 0 {
		headers := make(map[string]interface{}, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		if err := chromedp.Run(b.ctx, network.Enable(), network.SetExtraHTTPHeaders(network.Headers(headers))); err != nil {
			b.closeLocked()
			return &capture.RenderInitError{Target: target, Err: fmt.Errorf("set headers: %w", err)}
		}
	}

	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		if err := chromedp.Run(b.ctx,
			emulation.SetDeviceMetricsOverride(int64(opts.ViewportWidth), int64(opts.ViewportHeight), 1.0, false),
		); err != nil {
			b.closeLocked()
			return &capture.RenderInitError{Target: target, Err: fmt.Errorf("set viewport: %w", err)}
		}
	}

	if err := chromedp.Run(b.ctx, chromedp.Navigate(target)); err != nil {
		b.closeLocked()
		return &capture.RenderInitError{Target: target, Err: fmt.Errorf("navigate: %w", err)}
	}

	b.opened = true
	return nil
}

// CaptureFrame snapshots the current render state as PNG. Failures are
// transient unless the session itself is gone.
func (b *Browser) CaptureFrame(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	sessCtx := b.ctx
	opened := b.opened
	b.mu.Unlock()

	if !opened {
		return nil, &capture.RenderInitError{Err: fmt.Errorf("session not open")}
	}

	var buf []byte
	err := chromedp.Run(sessCtx, chromedp.CaptureScreenshot(&buf))
	if err != nil {
		if sessCtx.Err() != nil || ctx.Err() != nil {
			return nil, &capture.RenderInitError{Err: fmt.Errorf("session lost: %w", err)}
		}
		return nil, &capture.RenderTransientError{Err: err}
	}
	return buf, nil
}

// Close shuts down the browser. Idempotent and safe after a failed Open.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeLocked()
	return nil
}

func (b *Browser) closeLocked() {
	b.opened = false
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	// Give Chrome a moment to shut down before the allocator is torn down.
	if b.allocCancel != nil {
		time.Sleep(100 * time.Millisecond)
		b.allocCancel()
		b.allocCancel = nil
	}
}

// Ensure Browser implements ports.Browser
var _ ports.Browser = (*Browser)(nil)
