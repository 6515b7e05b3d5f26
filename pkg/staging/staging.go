// Package staging provides the per-job, filesystem-backed frame store that
// sits between capture and encode.
package staging

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/user/framecast/pkg/ports"
)

// ManifestName is the file that records frame and gap positions inside a
// staging directory, so a failed job stays inspectable.
const ManifestName = "manifest.json"

// Record describes one sequence index: either a staged frame file or an
// explicit gap.
type Record struct {
	Index       int    `json:"index"`
	TimestampMs int    `json:"timestamp_ms"`
	Valid       bool   `json:"valid"`
	File        string `json:"file,omitempty"`
}

// Area is a per-job ordered collection of frames keyed by sequence index.
// Writes are append-only during sampling; after Seal the area is read-only.
type Area struct {
	dir string
	fs  ports.FileSystem

	mu      sync.Mutex
	records []Record
	sealed  bool
}

// Open creates (or reuses) the staging directory for a job under root.
func Open(root, jobID string, fs ports.FileSystem) (*Area, error) {
	dir := filepath.Join(root, jobID)
	if err := fs.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Area{dir: dir, fs: fs}, nil
}

// Dir returns the staging directory path.
func (a *Area) Dir() string { return a.dir }

// AppendFrame stages a captured frame at the next sequence index and returns
// that index. The frame file is named by its zero-padded index.
func (a *Area) AppendFrame(data []byte, timestampMs int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed {
		return 0, fmt.Errorf("staging area %s is sealed", a.dir)
	}

	idx := len(a.records)
	name := frameFileName(idx)
	if err := a.fs.WriteFile(filepath.Join(a.dir, name), data); err != nil {
		return 0, fmt.Errorf("write frame %d: %w", idx, err)
	}

	a.records = append(a.records, Record{
		Index:       idx,
		TimestampMs: timestampMs,
		Valid:       true,
		File:        name,
	})
	return idx, nil
}

// AppendGap records an explicit gap at the next sequence index and returns
// that index. Gaps are never silently skipped; the encoder compensates by
// duplication.
func (a *Area) AppendGap(timestampMs int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed {
		return 0, fmt.Errorf("staging area %s is sealed", a.dir)
	}

	idx := len(a.records)
	a.records = append(a.records, Record{
		Index:       idx,
		TimestampMs: timestampMs,
		Valid:       false,
	})
	return idx, nil
}

// FrameCount returns the number of valid staged frames.
func (a *Area) FrameCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.records {
		if r.Valid {
			n++
		}
	}
	return n
}

// GapCount returns the number of recorded gaps.
func (a *Area) GapCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.records {
		if !r.Valid {
			n++
		}
	}
	return n
}

// Seal closes the area for writes, persists the manifest, and returns a
// read-only snapshot for encoding.
func (a *Area) Seal() (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sealed = true

	data, err := json.MarshalIndent(a.records, "", "  ")
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := a.fs.WriteFile(filepath.Join(a.dir, ManifestName), data); err != nil {
		return Snapshot{}, fmt.Errorf("write manifest: %w", err)
	}

	records := make([]Record, len(a.records))
	copy(records, a.records)
	return Snapshot{Dir: a.dir, Records: records}, nil
}

// Remove deletes the staging directory and everything in it.
func (a *Area) Remove() error {
	return a.fs.RemoveAll(a.dir)
}

// Snapshot is an immutable view of a sealed staging area.
type Snapshot struct {
	Dir     string
	Records []Record
}

// FrameCount returns the number of valid frames in the snapshot.
func (s Snapshot) FrameCount() int {
	n := 0
	for _, r := range s.Records {
		if r.Valid {
			n++
		}
	}
	return n
}

// GapCount returns the number of gaps in the snapshot.
func (s Snapshot) GapCount() int {
	return len(s.Records) - s.FrameCount()
}

// FramePath returns the path of the frame file for a record.
func (s Snapshot) FramePath(r Record) string {
	return filepath.Join(s.Dir, r.File)
}

func frameFileName(index int) string {
	return fmt.Sprintf("frame_%06d.png", index)
}
