// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
)

// Browser abstracts one headless-browser session rendering a single target.
// A session is single-threaded: callers must not invoke CaptureFrame
// concurrently, and must pace calls themselves since each capture may
// advance the underlying render.
type Browser interface {
	// Open launches the browser and loads the target. A failure here means
	// the rendering surface could not be established.
	Open(ctx context.Context, target string, opts BrowserOptions) error

	// CaptureFrame returns one PNG snapshot of the current render state.
	CaptureFrame(ctx context.Context) ([]byte, error)

	// Close releases all session resources. Safe to call more than once
	// and after a prior failure.
	Close() error
}

// BrowserOptions configures browser launch settings.
type BrowserOptions struct {
	Headless          bool
	ChromePath        string
	UserAgent         string
	Headers           map[string]string
	ViewportWidth     int
	ViewportHeight    int
	IgnoreHTTPSErrors bool   // Ignore HTTPS certificate errors
	ProxyServer       string // HTTP proxy server (e.g., "http://proxy:8080")
	Incognito         bool   // Run browser in incognito mode
}
