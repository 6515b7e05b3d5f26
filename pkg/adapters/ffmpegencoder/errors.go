package ffmpegencoder

import "errors"

var (
	// ErrNotInitialized is returned when encoder methods are called before
	// Begin or after End.
	ErrNotInitialized = errors.New("ffmpegencoder: encoder not initialized")

	// ErrFFmpegNotFound is returned when no ffmpeg executable can be located.
	ErrFFmpegNotFound = errors.New("ffmpegencoder: ffmpeg not found")

	// ErrEmptyOutput is returned when ffmpeg exits cleanly but produced a
	// zero-byte file.
	ErrEmptyOutput = errors.New("ffmpegencoder: encoder produced empty output")
)
