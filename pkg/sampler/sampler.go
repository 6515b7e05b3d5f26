// Package sampler implements the timed frame acquisition loop.
package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/ports"
	"github.com/user/framecast/pkg/staging"
)

// DefaultMaxRetries bounds transient capture retries before an index is
// recorded as a gap.
const DefaultMaxRetries = 3

// DefaultRetryBackoff is the base delay between transient retries. The delay
// grows linearly with the attempt number.
const DefaultRetryBackoff = 50 * time.Millisecond

// Params configures one sampling run.
type Params struct {
	FPS       float64
	MaxFrames int
}

// Result summarizes a sampling run.
type Result struct {
	FramesCaptured int
	Gaps           int
	// Stopped is true when the loop ended on cancellation or budget
	// expiry rather than reaching MaxFrames.
	Stopped bool
}

// Sampler drives a renderer session at a fixed cadence, writing frames into
// a staging area in strictly increasing sequence order. Index i+1 is only
// captured once index i resolved to a frame or a recorded gap.
type Sampler struct {
	browser ports.Browser
	logger  ports.Logger

	MaxRetries   int
	RetryBackoff time.Duration
}

// New creates a Sampler around an open renderer session.
func New(browser ports.Browser, logger ports.Logger) *Sampler {
	return &Sampler{
		browser:      browser,
		logger:       logger.WithComponent("sampler"),
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: DefaultRetryBackoff,
	}
}

// Run executes the acquisition loop until MaxFrames is reached, the context
// is cancelled, or the session fails fatally. On a fatal error the staged
// frames are left in place and the error is returned alongside the partial
// result.
func (s *Sampler) Run(ctx context.Context, area *staging.Area, p Params) (Result, error) {
	result := Result{}

	if p.FPS <= 0 {
		return result, fmt.Errorf("invalid frame rate: %v", p.FPS)
	}
	if p.MaxFrames <= 0 {
		return result, fmt.Errorf("invalid frame budget: %d", p.MaxFrames)
	}

	interval := time.Duration(float64(time.Second) / p.FPS)
	start := time.Now()
	next := start

	s.logger.Debug("Sampling %d frames at %.2f fps (%s interval)", p.MaxFrames, p.FPS, interval)

	for i := 0; i < p.MaxFrames; i++ {
		if !s.waitUntil(ctx, next) {
			result.Stopped = true
			s.logger.Debug("Sampling stopped at index %d", i)
			return result, nil
		}

		data, err := s.captureWithRetry(ctx)
		timestampMs := int(time.Since(start).Milliseconds())

		switch {
		case err == nil:
			if _, werr := area.AppendFrame(data, timestampMs); werr != nil {
				return result, fmt.Errorf("stage frame %d: %w", i, werr)
			}
			result.FramesCaptured++

		case ctx.Err() != nil:
			result.Stopped = true
			return result, nil

		case capture.IsTransient(err):
			// Retries exhausted. A single failed frame never aborts the
			// job; record the gap and keep the timeline position.
			if _, werr := area.AppendGap(timestampMs); werr != nil {
				return result, fmt.Errorf("record gap %d: %w", i, werr)
			}
			result.Gaps++
			s.logger.Warn("Frame %d recorded as gap: %s", i, err)

		default:
			// Fatal session failure ends the loop; staged frames stay put.
			return result, err
		}

		next = next.Add(interval)
	}

	s.logger.Debug("Sampling complete: %d frames, %d gaps", result.FramesCaptured, result.Gaps)
	return result, nil
}

// captureWithRetry attempts one capture, retrying transient failures with
// linear backoff up to MaxRetries extra attempts.
func (s *Sampler) captureWithRetry(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			if !s.sleep(ctx, time.Duration(attempt)*s.RetryBackoff) {
				return nil, ctx.Err()
			}
			s.logger.Debug("Retrying capture, attempt %d", attempt)
		}

		data, err := s.browser.CaptureFrame(ctx)
		if err == nil {
			return data, nil
		}
		if !capture.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// waitUntil blocks until the due time or cancellation; it reports false when
// the context ended first. This is one of the two suspension points of a job
// and must observe cancellation within a sampling interval.
func (s *Sampler) waitUntil(ctx context.Context, due time.Time) bool {
	d := time.Until(due)
	if d <= 0 {
		return ctx.Err() == nil
	}
	return s.sleep(ctx, d)
}

func (s *Sampler) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
