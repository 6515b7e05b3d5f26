// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/user/framecast/pkg/ports"
)

// Browser is a mock implementation of ports.Browser.
type Browser struct {
	OpenFunc         func(ctx context.Context, target string, opts ports.BrowserOptions) error
	CaptureFrameFunc func(ctx context.Context) ([]byte, error)
	CloseFunc        func() error

	mu           sync.Mutex
	openCalls    int
	captureCalls int
	closeCalls   int
}

func (m *Browser) Open(ctx context.Context, target string, opts ports.BrowserOptions) error {
	m.mu.Lock()
	m.openCalls++
	m.mu.Unlock()
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, target, opts)
	}
	return nil
}

func (m *Browser) CaptureFrame(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	m.captureCalls++
	m.mu.Unlock()
	if m.CaptureFrameFunc != nil {
		return m.CaptureFrameFunc(ctx)
	}
	return []byte{0x89, 0x50, 0x4E, 0x47}, nil
}

func (m *Browser) Close() error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// OpenCalls returns how many times Open was invoked.
func (m *Browser) OpenCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCalls
}

// CaptureCalls returns how many times CaptureFrame was invoked.
func (m *Browser) CaptureCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureCalls
}

// CloseCalls returns how many times Close was invoked.
func (m *Browser) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// Ensure Browser implements ports.Browser
var _ ports.Browser = (*Browser)(nil)
