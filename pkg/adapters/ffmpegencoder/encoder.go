// Package ffmpegencoder provides H.264 video encoding through an external
// ffmpeg process fed raw RGBA frames over stdin.
package ffmpegencoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/user/framecast/pkg/ports"
)

// Encoder implements ports.VideoEncoder using ffmpeg.
type Encoder struct {
	mu sync.Mutex

	ffmpegPath string
	width      int
	height     int
	fps        float64
	opts       ports.EncoderOptions

	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stderr     bytes.Buffer
	tempPath   string
	frameCount int
	closed     bool
}

// New creates a new ffmpeg-based encoder.
func New() *Encoder {
	return &Encoder{}
}

// Begin locates ffmpeg and starts the encode process. The context bounds the
// whole run; cancelling it kills the process.
func (e *Encoder) Begin(ctx context.Context, width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return err
	}
	e.ffmpegPath = ffmpegPath

	e.width = width
	e.height = height
	e.fps = fps
	e.opts = opts
	e.frameCount = 0
	e.closed = false

	tmpFile, err := os.CreateTemp("", "framecast_encode_*.mp4")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	e.tempPath = tmpFile.Name()
	tmpFile.Close()

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%.2f", fps),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
	}

	if opts.Quality > 0 && opts.Quality <= 63 {
		// Map our 0-63 scale to x264's CRF range (0-51).
		crf := opts.Quality * 51 / 63
		if crf > 51 {
			crf = 51
		}
		args = append(args, "-crf", fmt.Sprintf("%d", crf))
	} else {
		args = append(args, "-crf", "23")
	}

	if opts.Bitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", opts.Bitrate))
	}

	args = append(args,
		"-profile:v", "baseline",
		"-level", "3.1",
		"-movflags", "+faststart",
		e.tempPath,
	)

	e.cmd = exec.CommandContext(ctx, e.ffmpegPath, args...)
	e.stderr.Reset()
	e.cmd.Stderr = &e.stderr

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		os.Remove(e.tempPath)
		return fmt.Errorf("stdin pipe: %w", err)
	}
	e.stdin = stdin

	if err := e.cmd.Start(); err != nil {
		os.Remove(e.tempPath)
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	return nil
}

// EncodeFrame writes one frame as raw RGBA to the ffmpeg pipe. The timestamp
// is informational; frame pacing comes from the input rate flag.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil || e.closed {
		return ErrNotInitialized
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Dx() != e.width || bounds.Dy() != e.height {
		rgba = image.NewRGBA(image.Rect(0, 0, e.width, e.height))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	if _, err := e.stdin.Write(rgba.Pix); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	e.frameCount++
	return nil
}

// End closes the pipe, waits for ffmpeg and returns the MP4 data. A non-zero
// exit or empty output file is an error.
func (e *Encoder) End() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil || e.closed {
		return nil, ErrNotInitialized
	}

	e.stdin.Close()
	e.stdin = nil
	e.closed = true

	defer func() {
		if e.tempPath != "" {
			os.Remove(e.tempPath)
			e.tempPath = ""
		}
	}()

	if err := e.cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg exited: %w\nstderr: %s", err, e.stderr.String())
	}

	data, err := os.ReadFile(e.tempPath)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyOutput
	}

	return data, nil
}

// Ensure Encoder implements ports.VideoEncoder
var _ ports.VideoEncoder = (*Encoder)(nil)
