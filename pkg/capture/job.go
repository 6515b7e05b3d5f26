// Package capture defines the domain types shared by the capture-and-encode
// pipeline: jobs, frames, artifacts and the error taxonomy.
package capture

import (
	"time"
)

// JobState represents the lifecycle state of a capture job.
type JobState int

const (
	// StatePending means the job is submitted but has not checked out a
	// renderer session yet (including waiting on the session pool).
	StatePending JobState = iota
	// StateRendering means the sampling loop is pulling frames.
	StateRendering
	// StateStopped means sampling ended on external cancellation or the
	// wall-clock budget; encoding proceeds with whatever was staged.
	StateStopped
	// StateEncoding means staged frames are being assembled into a video.
	StateEncoding
	// StateCompleted means the artifact is ready.
	StateCompleted
	// StateFailed means the job ended with a fatal error.
	StateFailed
)

// String returns the lowercase state name used in status reports.
func (s JobState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRendering:
		return "rendering"
	case StateStopped:
		return "stopped"
	case StateEncoding:
		return "encoding"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further state transitions can occur.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// JobSpec describes one requested capture-and-encode run.
type JobSpec struct {
	// Target is the URL or scene descriptor to render.
	Target string

	// FPS is the requested sampling and playback frame rate. Encoding
	// always uses this nominal rate, not the rate actually achieved.
	FPS float64

	// MaxFrames bounds the number of sampled frames. Zero means derive it
	// from Duration.
	MaxFrames int

	// Duration is the requested capture length. Ignored when MaxFrames is
	// set.
	Duration time.Duration

	// Budget caps the wall clock time of the rendering phase, and grants
	// the encoding phase a fresh window of the same length. Time spent
	// queued for a session slot is not counted; a queued job waits
	// indefinitely unless cancelled. Zero means the controller default.
	// Exceeding the budget forces the cancellation path.
	Budget time.Duration
}

// FrameBudget resolves the number of frames this spec asks for.
func (s JobSpec) FrameBudget() int {
	if s.MaxFrames > 0 {
		return s.MaxFrames
	}
	if s.Duration > 0 && s.FPS > 0 {
		n := int(s.Duration.Seconds() * s.FPS)
		if n < 1 {
			n = 1
		}
		return n
	}
	return 0
}

// JobStatus is a point-in-time view of a job, safe to hand to callers.
type JobStatus struct {
	ID             string
	State          JobState
	FramesCaptured int
	Gaps           int
	// Progress estimates completion of the sampling phase in [0,1].
	Progress float64
	// Err carries the fatal error message for failed jobs.
	Err string
}
