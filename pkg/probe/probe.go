// Package probe inspects encoded MP4 output to recover playback metadata.
package probe

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
)

// DurationMs parses MP4 data and returns the movie duration in milliseconds
// from the movie header. The header may live in the top-level moov or in the
// init segment of a fragmented file; data without one is an error.
func DurationMs(data []byte) (int, error) {
	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode mp4: %w", err)
	}

	moov := f.Moov
	if moov == nil && f.Init != nil {
		moov = f.Init.Moov
	}
	if moov == nil || moov.Mvhd == nil {
		return 0, fmt.Errorf("mp4 has no movie header")
	}

	mvhd := moov.Mvhd
	if mvhd.Timescale == 0 {
		return 0, fmt.Errorf("mp4 movie header has zero timescale")
	}
	return int(mvhd.Duration * 1000 / uint64(mvhd.Timescale)), nil
}
