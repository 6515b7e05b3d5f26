package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/user/framecast/pkg/adapters/logger"
	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/mocks"
	"github.com/user/framecast/pkg/staging"
)

func pngBytes(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// seal builds a snapshot from the given per-index frame data; nil entries
// become gaps.
func seal(t *testing.T, fs *mocks.FileSystem, frames [][]byte) staging.Snapshot {
	t.Helper()
	area, err := staging.Open("staging", "job", fs)
	if err != nil {
		t.Fatalf("open staging: %v", err)
	}
	for i, data := range frames {
		ts := i * 40
		if data == nil {
			_, err = area.AppendGap(ts)
		} else {
			_, err = area.AppendFrame(data, ts)
		}
		if err != nil {
			t.Fatalf("stage index %d: %v", i, err)
		}
	}
	snap, err := area.Seal()
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	return snap
}

func TestAssemble_GapsDuplicatePriorFrameAtNominalTimestamps(t *testing.T) {
	fs := mocks.NewFileSystem()
	frame := pngBytes(t, 32, 24, color.White)
	snap := seal(t, fs, [][]byte{frame, nil, nil, frame, nil})

	enc := &mocks.VideoEncoder{}
	coord := New(enc, fs, logger.NewNoop())

	artifact, err := coord.Assemble(context.Background(), snap, Request{
		FPS:        25,
		OutputPath: "out/job.mp4",
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if len(enc.EncodeFrameCalls) != 5 {
		t.Fatalf("expected 5 encoded frames, got %d", len(enc.EncodeFrameCalls))
	}
	// Nominal timestamps at index*1000/fps, independent of capture times.
	for i, call := range enc.EncodeFrameCalls {
		want := i * 40
		if call.TimestampMs != want {
			t.Errorf("frame %d timestamp = %d, want %d", i, call.TimestampMs, want)
		}
	}
	// Gaps reuse the previous image value rather than re-decoding.
	calls := enc.EncodeFrameCalls
	if calls[1].Image != calls[0].Image || calls[2].Image != calls[0].Image {
		t.Error("gap frames should duplicate the prior valid frame")
	}
	if calls[4].Image != calls[3].Image {
		t.Error("trailing gap should duplicate the final valid frame")
	}

	if artifact.FrameCount != 5 || artifact.Gaps != 3 {
		t.Errorf("artifact counts = %d frames %d gaps, want 5 and 3", artifact.FrameCount, artifact.Gaps)
	}
	if artifact.DurationMs != 200 {
		t.Errorf("duration = %d ms, want 200", artifact.DurationMs)
	}
	if _, ok := fs.GetFile("out/job.mp4"); !ok {
		t.Error("artifact file not written")
	}
}

func TestAssemble_LeadingGapUsesPlaceholder(t *testing.T) {
	fs := mocks.NewFileSystem()
	frame := pngBytes(t, 32, 24, color.White)
	snap := seal(t, fs, [][]byte{nil, frame})

	enc := &mocks.VideoEncoder{}
	coord := New(enc, fs, logger.NewNoop())

	if _, err := coord.Assemble(context.Background(), snap, Request{FPS: 25, OutputPath: "out.mp4"}); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	first := enc.EncodeFrameCalls[0].Image
	if first == nil {
		t.Fatal("leading gap encoded a nil image")
	}
	b := first.Bounds()
	if b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("placeholder dimensions = %dx%d, want 32x24", b.Dx(), b.Dy())
	}
	if first == enc.EncodeFrameCalls[1].Image {
		t.Error("placeholder must not be the decoded frame")
	}
}

func TestAssemble_EmptySnapshotFailsWithNoFrames(t *testing.T) {
	fs := mocks.NewFileSystem()
	snap := seal(t, fs, nil)

	coord := New(&mocks.VideoEncoder{}, fs, logger.NewNoop())
	_, err := coord.Assemble(context.Background(), snap, Request{FPS: 25, OutputPath: "out.mp4"})
	if !errors.Is(err, capture.ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
}

func TestAssemble_AllGapsSnapshotFailsWithNoFrames(t *testing.T) {
	fs := mocks.NewFileSystem()
	snap := seal(t, fs, [][]byte{nil, nil, nil})

	coord := New(&mocks.VideoEncoder{}, fs, logger.NewNoop())
	_, err := coord.Assemble(context.Background(), snap, Request{FPS: 25, OutputPath: "out.mp4"})
	if !errors.Is(err, capture.ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
}

func TestAssemble_UnreadableFrameDegradesToGap(t *testing.T) {
	fs := mocks.NewFileSystem()
	frame := pngBytes(t, 16, 16, color.Black)
	snap := seal(t, fs, [][]byte{frame, []byte("not a png"), frame})

	enc := &mocks.VideoEncoder{}
	coord := New(enc, fs, logger.NewNoop())

	artifact, err := coord.Assemble(context.Background(), snap, Request{FPS: 25, OutputPath: "out.mp4"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if artifact.Gaps != 1 {
		t.Errorf("expected 1 gap from the corrupt frame, got %d", artifact.Gaps)
	}
	if enc.EncodeFrameCalls[1].Image != enc.EncodeFrameCalls[0].Image {
		t.Error("corrupt frame should duplicate the prior image")
	}
}

func TestAssemble_MismatchedFrameScaledToReferenceSize(t *testing.T) {
	fs := mocks.NewFileSystem()
	snap := seal(t, fs, [][]byte{
		pngBytes(t, 32, 24, color.White),
		pngBytes(t, 64, 48, color.Black),
	})

	enc := &mocks.VideoEncoder{}
	coord := New(enc, fs, logger.NewNoop())

	if _, err := coord.Assemble(context.Background(), snap, Request{FPS: 25, OutputPath: "out.mp4"}); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if enc.BeginWidth != 32 || enc.BeginHeight != 24 {
		t.Errorf("reference size = %dx%d, want 32x24", enc.BeginWidth, enc.BeginHeight)
	}
	b := enc.EncodeFrameCalls[1].Image.Bounds()
	if b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("oversize frame not normalized: %dx%d", b.Dx(), b.Dy())
	}
}

func TestAssemble_EncoderFailureWrapsEncodeError(t *testing.T) {
	fs := mocks.NewFileSystem()
	snap := seal(t, fs, [][]byte{pngBytes(t, 16, 16, color.White)})

	enc := &mocks.VideoEncoder{
		EndFunc: func() ([]byte, error) {
			return nil, fmt.Errorf("muxer exploded")
		},
	}
	coord := New(enc, fs, logger.NewNoop())

	_, err := coord.Assemble(context.Background(), snap, Request{FPS: 25, OutputPath: "out.mp4"})
	var encodeErr *capture.EncodeError
	if !errors.As(err, &encodeErr) {
		t.Errorf("expected EncodeError, got %v", err)
	}
}

func TestAssemble_CancelledContextAborts(t *testing.T) {
	fs := mocks.NewFileSystem()
	snap := seal(t, fs, [][]byte{pngBytes(t, 16, 16, color.White)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord := New(&mocks.VideoEncoder{}, fs, logger.NewNoop())
	if _, err := coord.Assemble(ctx, snap, Request{FPS: 25, OutputPath: "out.mp4"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
