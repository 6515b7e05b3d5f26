package capture

// Artifact is the final encoded video output of one capture job.
type Artifact struct {
	// Path of the video file under the job-scoped output location.
	Path string

	// DurationMs is the playback duration, probed from the container when
	// possible and otherwise derived from the nominal frame rate.
	DurationMs int

	// FrameCount is the number of encoded frames, gap fills included.
	FrameCount int

	// Gaps counts the sequence positions that were filled by duplicating a
	// prior frame (or a placeholder). Surfaced as a warning count only.
	Gaps int

	// Size is the artifact file size in bytes.
	Size int64
}
