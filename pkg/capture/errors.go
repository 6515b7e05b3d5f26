package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFrames is returned when a job reaches encoding with nothing
	// staged. It distinguishes "nothing was ever captured" from an encoder
	// failure on valid input.
	ErrNoFrames = errors.New("capture: no frames staged")

	// ErrJobNotFound is returned for operations on an unknown job id.
	ErrJobNotFound = errors.New("capture: job not found")
)

// RenderInitError marks a fatal renderer failure: the target could not be
// loaded or the rendering surface could not be re-established. It ends the
// job; any staged frames are preserved.
type RenderInitError struct {
	Target string
	Err    error
}

func (e *RenderInitError) Error() string {
	return fmt.Sprintf("renderer init for %q: %v", e.Target, e.Err)
}

func (e *RenderInitError) Unwrap() error { return e.Err }

// RenderTransientError marks a per-frame capture failure. Transient errors
// are retried and, once exhausted, converted into a recorded gap. They never
// abort the job.
type RenderTransientError struct {
	Err error
}

func (e *RenderTransientError) Error() string {
	return fmt.Sprintf("transient capture failure: %v", e.Err)
}

func (e *RenderTransientError) Unwrap() error { return e.Err }

// EncodeError marks a failed encoder run: the process exited non-zero or
// produced no output bytes.
type EncodeError struct {
	Detail string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("encode failed: %v (%s)", e.Err, e.Detail)
	}
	return fmt.Sprintf("encode failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a per-frame transient capture failure.
func IsTransient(err error) bool {
	var t *RenderTransientError
	return errors.As(err, &t)
}

// IsFatalRender reports whether err is a job-ending renderer failure.
func IsFatalRender(err error) bool {
	var f *RenderInitError
	return errors.As(err, &f)
}
