package sampler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/framecast/pkg/adapters/logger"
	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/mocks"
	"github.com/user/framecast/pkg/staging"
)

// fastParams keeps test wall time low: 1ms sampling interval.
func fastParams(frames int) Params {
	return Params{FPS: 1000, MaxFrames: frames}
}

func newArea(t *testing.T) *staging.Area {
	t.Helper()
	area, err := staging.Open(t.TempDir(), "job", mocks.NewFileSystem())
	if err != nil {
		t.Fatalf("open staging: %v", err)
	}
	return area
}

func TestRun_CapturesAllFrames(t *testing.T) {
	browser := &mocks.Browser{
		CaptureFrameFunc: func(ctx context.Context) ([]byte, error) {
			return []byte("png"), nil
		},
	}
	area := newArea(t)

	s := New(browser, logger.NewNoop())
	res, err := s.Run(context.Background(), area, fastParams(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FramesCaptured != 5 || res.Gaps != 0 || res.Stopped {
		t.Errorf("unexpected result: %+v", res)
	}
	if area.FrameCount() != 5 {
		t.Errorf("expected 5 staged frames, got %d", area.FrameCount())
	}
}

func TestRun_EveryThirdCaptureFailsTransiently(t *testing.T) {
	var calls int32
	browser := &mocks.Browser{
		CaptureFrameFunc: func(ctx context.Context) ([]byte, error) {
			n := atomic.AddInt32(&calls, 1)
			if n%3 == 0 {
				return nil, &capture.RenderTransientError{Err: fmt.Errorf("flaky surface")}
			}
			return []byte("png"), nil
		},
	}
	area := newArea(t)

	s := New(browser, logger.NewNoop())
	// One attempt per index so call positions map directly onto indices.
	s.MaxRetries = 0
	s.RetryBackoff = time.Millisecond

	res, err := s.Run(context.Background(), area, fastParams(9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Calls 3, 6 and 9 fail, so indices 2, 5 and 8 become gaps.
	if res.Gaps != 3 {
		t.Errorf("expected 3 gaps, got %d", res.Gaps)
	}
	if res.FramesCaptured != 6 {
		t.Errorf("expected 6 frames, got %d", res.FramesCaptured)
	}

	snap, err := area.Seal()
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	for _, rec := range snap.Records {
		wantGap := rec.Index == 2 || rec.Index == 5 || rec.Index == 8
		if rec.Valid == wantGap {
			t.Errorf("index %d: valid=%v, want gap=%v", rec.Index, rec.Valid, wantGap)
		}
	}
}

func TestRun_TransientFailureRecoversOnRetry(t *testing.T) {
	var calls int32
	browser := &mocks.Browser{
		CaptureFrameFunc: func(ctx context.Context) ([]byte, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, &capture.RenderTransientError{Err: fmt.Errorf("first attempt fails")}
			}
			return []byte("png"), nil
		},
	}
	area := newArea(t)

	s := New(browser, logger.NewNoop())
	s.RetryBackoff = time.Millisecond

	res, err := s.Run(context.Background(), area, fastParams(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Gaps != 0 || res.FramesCaptured != 2 {
		t.Errorf("retry should have recovered the frame: %+v", res)
	}
}

func TestRun_FatalFailureEndsLoopPreservingFrames(t *testing.T) {
	var calls int32
	browser := &mocks.Browser{
		CaptureFrameFunc: func(ctx context.Context) ([]byte, error) {
			if atomic.AddInt32(&calls, 1) > 2 {
				return nil, &capture.RenderInitError{Err: fmt.Errorf("browser crashed")}
			}
			return []byte("png"), nil
		},
	}
	area := newArea(t)

	s := New(browser, logger.NewNoop())
	res, err := s.Run(context.Background(), area, fastParams(10))
	if err == nil {
		t.Fatal("expected fatal error")
	}
	if !capture.IsFatalRender(err) {
		t.Errorf("expected RenderInitError, got %v", err)
	}
	if res.FramesCaptured != 2 {
		t.Errorf("expected 2 frames staged before the crash, got %d", res.FramesCaptured)
	}
	if area.FrameCount() != 2 {
		t.Errorf("staged frames must be preserved, got %d", area.FrameCount())
	}
}

func TestRun_CancellationObservedWithinInterval(t *testing.T) {
	browser := &mocks.Browser{
		CaptureFrameFunc: func(ctx context.Context) ([]byte, error) {
			return []byte("png"), nil
		},
	}
	area := newArea(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(browser, logger.NewNoop())

	resCh := make(chan Result, 1)
	go func() {
		// Slow cadence so the loop spends its time in the wait.
		res, err := s.Run(ctx, area, Params{FPS: 2, MaxFrames: 100})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		resCh <- res
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case res := <-resCh:
		if !res.Stopped {
			t.Errorf("expected stopped result, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("cancellation not observed within a sampling interval")
	}
}

func TestRun_RejectsInvalidParams(t *testing.T) {
	s := New(&mocks.Browser{}, logger.NewNoop())
	area := newArea(t)

	if _, err := s.Run(context.Background(), area, Params{FPS: 0, MaxFrames: 1}); err == nil {
		t.Error("expected error for zero fps")
	}
	if _, err := s.Run(context.Background(), area, Params{FPS: 25, MaxFrames: 0}); err == nil {
		t.Error("expected error for zero frame budget")
	}
}
