package ffmpegencoder

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/framecast/pkg/ports"
	"github.com/user/framecast/pkg/probe"
)

func gradientFrame(width, height, n int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x*255/width + n*10) % 256),
				G: uint8((y*255/height + n*5) % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func TestEncoder_LifecycleGuards(t *testing.T) {
	e := New()

	if err := e.EncodeFrame(gradientFrame(16, 16, 0), 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("EncodeFrame before Begin: got %v, want ErrNotInitialized", err)
	}
	if _, err := e.End(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("End before Begin: got %v, want ErrNotInitialized", err)
	}
}

func TestEncoder_EncodesPlayableMP4(t *testing.T) {
	if !IsAvailable() {
		t.Skip("ffmpeg not installed")
	}

	e := New()
	width, height := 128, 96
	fps := 25.0

	if err := e.Begin(context.Background(), width, height, fps, ports.EncoderOptions{Quality: 30}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for i := 0; i < 25; i++ {
		if err := e.EncodeFrame(gradientFrame(width, height, i), i*40); err != nil {
			t.Fatalf("EncodeFrame %d: %v", i, err)
		}
	}
	data, err := e.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty output")
	}

	// One second of frames at 25 fps should probe close to 1000 ms.
	ms, err := probe.DurationMs(data)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if ms < 900 || ms > 1100 {
		t.Errorf("duration = %d ms, want ~1000", ms)
	}

	if _, err := e.End(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("second End: got %v, want ErrNotInitialized", err)
	}
}

func TestEncoder_CancelledContextKillsProcess(t *testing.T) {
	if !IsAvailable() {
		t.Skip("ffmpeg not installed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := New()
	if err := e.Begin(ctx, 64, 64, 25, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	cancel()

	// The pipe may absorb a few writes before the kill is observed, but
	// End must report the failure.
	for i := 0; i < 100; i++ {
		if err := e.EncodeFrame(gradientFrame(64, 64, i), i*40); err != nil {
			break
		}
	}
	if _, err := e.End(); err == nil {
		t.Error("expected error after cancellation")
	}
}

func TestFindFFmpeg_EnvOverride(t *testing.T) {
	fake := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	t.Setenv("FFMPEG_PATH", fake)

	got, err := FindFFmpeg()
	if err != nil {
		t.Fatalf("FindFFmpeg: %v", err)
	}
	if got != fake {
		t.Errorf("got %s, want %s", got, fake)
	}
}

func TestFindFFmpeg_EnvPointsNowhere(t *testing.T) {
	t.Setenv("FFMPEG_PATH", filepath.Join(t.TempDir(), "absent"))

	if _, err := FindFFmpeg(); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("got %v, want ErrFFmpegNotFound", err)
	}
}
