// Package assemble implements the encode coordinator: it turns a sealed
// staging snapshot into a single video artifact.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/user/framecast/pkg/adapters/ggrenderer"
	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/ports"
	"github.com/user/framecast/pkg/probe"
	"github.com/user/framecast/pkg/staging"
)

// Request carries the encode parameters derived from the job spec. FPS is
// the rate frames were intended to be sampled at, never the achieved rate,
// so gap filling preserves playback duration.
type Request struct {
	FPS        float64
	Quality    int // CRF 0-63, lower is higher quality
	Bitrate    int // kbps, 0 leaves it to the encoder
	OutputPath string
}

// Coordinator walks a staging snapshot in sequence order and feeds frames to
// the encoder at their nominal timestamps. Gaps are filled by duplicating
// the most recent valid frame; a gap before any valid frame is filled with a
// rendered placeholder.
type Coordinator struct {
	encoder ports.VideoEncoder
	fs      ports.FileSystem
	logger  ports.Logger
}

// New creates a Coordinator.
func New(encoder ports.VideoEncoder, fs ports.FileSystem, logger ports.Logger) *Coordinator {
	return &Coordinator{
		encoder: encoder,
		fs:      fs,
		logger:  logger.WithComponent("assemble"),
	}
}

// Assemble encodes the snapshot into req.OutputPath and returns the
// artifact. A partial snapshot still yields a valid, shorter artifact;
// an empty one fails with capture.ErrNoFrames.
func (c *Coordinator) Assemble(ctx context.Context, snap staging.Snapshot, req Request) (capture.Artifact, error) {
	artifact := capture.Artifact{}

	if req.FPS <= 0 {
		return artifact, fmt.Errorf("invalid frame rate: %v", req.FPS)
	}
	if snap.FrameCount() == 0 {
		return artifact, capture.ErrNoFrames
	}

	width, height, err := c.referenceSize(snap)
	if err != nil {
		return artifact, err
	}

	c.logger.Debug("Encoding %d positions (%d gaps) at %.2f fps, %dx%d",
		len(snap.Records), snap.GapCount(), req.FPS, width, height)

	opts := ports.EncoderOptions{Bitrate: req.Bitrate, Quality: req.Quality}
	if err := c.encoder.Begin(ctx, width, height, req.FPS, opts); err != nil {
		return artifact, &capture.EncodeError{Err: err}
	}

	var last image.Image
	gaps := 0
	for _, rec := range snap.Records {
		select {
		case <-ctx.Done():
			return artifact, ctx.Err()
		default:
		}

		img := last
		filled := !rec.Valid
		if rec.Valid {
			decoded, derr := c.loadFrame(snap, rec, width, height)
			if derr != nil {
				// A frame that cannot be decoded degrades to a gap.
				c.logger.Warn("Frame %d unreadable, duplicating prior: %s", rec.Index, derr)
				filled = true
			} else {
				img = decoded
			}
		}
		if img == nil {
			img = ggrenderer.Placeholder(width, height)
		}
		if filled {
			gaps++
		}

		timestampMs := int(float64(rec.Index) * 1000.0 / req.FPS)
		if err := c.encoder.EncodeFrame(img, timestampMs); err != nil {
			return artifact, &capture.EncodeError{Err: fmt.Errorf("frame %d: %w", rec.Index, err)}
		}
		last = img
	}

	data, err := c.encoder.End()
	if err != nil {
		return artifact, &capture.EncodeError{Err: err}
	}
	if len(data) == 0 {
		return artifact, &capture.EncodeError{Err: fmt.Errorf("encoder produced no output")}
	}

	if err := c.fs.WriteFile(req.OutputPath, data); err != nil {
		return artifact, fmt.Errorf("write artifact: %w", err)
	}

	durationMs := int(float64(len(snap.Records)) * 1000.0 / req.FPS)
	if probed, perr := probe.DurationMs(data); perr == nil && probed > 0 {
		durationMs = probed
	}

	artifact = capture.Artifact{
		Path:       req.OutputPath,
		DurationMs: durationMs,
		FrameCount: len(snap.Records),
		Gaps:       gaps,
		Size:       int64(len(data)),
	}
	c.logger.Debug("Artifact written: %s (%d bytes, %d ms)", artifact.Path, artifact.Size, artifact.DurationMs)
	return artifact, nil
}

// referenceSize finds the dimensions of the first decodable frame; every
// encoded frame is normalized to them.
func (c *Coordinator) referenceSize(snap staging.Snapshot) (int, int, error) {
	for _, rec := range snap.Records {
		if !rec.Valid {
			continue
		}
		cfgData, err := c.fs.ReadFile(snap.FramePath(rec))
		if err != nil {
			continue
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(cfgData))
		if err != nil {
			continue
		}
		return cfg.Width, cfg.Height, nil
	}
	return 0, 0, capture.ErrNoFrames
}

// loadFrame reads and decodes one staged frame, scaling it to the reference
// dimensions when it differs.
func (c *Coordinator) loadFrame(snap staging.Snapshot, rec staging.Record, width, height int) (image.Image, error) {
	data, err := c.fs.ReadFile(snap.FramePath(rec))
	if err != nil {
		return nil, fmt.Errorf("read frame %d: %w", rec.Index, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", rec.Index, err)
	}

	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}
