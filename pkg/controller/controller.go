// Package controller orchestrates capture-and-encode jobs end to end: it
// owns job lifecycle, the renderer session pool, staging cleanup, and the
// status surface exposed to the control layer.
package controller

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/user/framecast/pkg/assemble"
	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/ports"
	"github.com/user/framecast/pkg/sampler"
	"github.com/user/framecast/pkg/staging"
)

// BrowserFactory produces a fresh renderer session. Sessions are heavyweight
// and never shared across jobs.
type BrowserFactory func() ports.Browser

// EncoderFactory produces a fresh video encoder for one encode run.
type EncoderFactory func() ports.VideoEncoder

// Config contains the controller settings.
type Config struct {
	StagingRoot string // per-job frame directories live under here
	OutputDir   string // per-job artifacts live under here

	PoolSize int // maximum concurrently open renderer sessions

	DefaultFPS      float64
	DefaultDuration time.Duration // capture length when the job spec names none
	DefaultBudget   time.Duration // wall-clock cap per job phase; excludes pool queue time

	Retention     time.Duration // how long terminal jobs keep their staging
	SweepSchedule string        // cron spec for the retention sweep

	Quality int
	Bitrate int

	MaxRetries   int
	RetryBackoff time.Duration

	Browser ports.BrowserOptions
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StagingRoot:     "frames",
		OutputDir:       "artifacts",
		PoolSize:        2,
		DefaultFPS:      25.0,
		DefaultDuration: 10 * time.Second,
		DefaultBudget:   2 * time.Minute,
		Retention:       15 * time.Minute,
		SweepSchedule:   "@every 1m",
		Quality:         30,
		MaxRetries:      sampler.DefaultMaxRetries,
		RetryBackoff:    sampler.DefaultRetryBackoff,
		Browser: ports.BrowserOptions{
			Headless:  true,
			Incognito: true,
		},
	}
}

// job is the controller-owned record for one capture run.
type job struct {
	mu sync.Mutex

	id           string
	spec         capture.JobSpec
	state        capture.JobState
	frames       int
	gaps         int
	budgetFrames int
	err          error
	artifact     *capture.Artifact
	area         *staging.Area
	finishedAt   time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func (j *job) setState(s capture.JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *job) status() capture.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := capture.JobStatus{
		ID:             j.id,
		State:          j.state,
		FramesCaptured: j.frames,
		Gaps:           j.gaps,
	}
	if j.budgetFrames > 0 {
		st.Progress = float64(j.frames+j.gaps) / float64(j.budgetFrames)
		if st.Progress > 1 {
			st.Progress = 1
		}
	}
	if j.state.Terminal() {
		st.Progress = 1
	}
	if j.err != nil {
		st.Err = j.err.Error()
	}
	return st
}

// Controller runs jobs concurrently, each with its own renderer session,
// staging area and sampling loop. The only shared resource is the session
// pool, a bounded channel of checkout tokens whose waiters are served in
// arrival order.
type Controller struct {
	cfg        Config
	fs         ports.FileSystem
	logger     ports.Logger
	newBrowser BrowserFactory
	newEncoder EncoderFactory

	rootCtx    context.Context
	rootCancel context.CancelFunc

	sessions chan struct{}
	cron     *cron.Cron

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates a Controller and starts its retention sweep.
func New(cfg Config, fs ports.FileSystem, logger ports.Logger, newBrowser BrowserFactory, newEncoder EncoderFactory) (*Controller, error) {
	if cfg.PoolSize <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", cfg.PoolSize)
	}
	if cfg.DefaultFPS <= 0 {
		return nil, fmt.Errorf("default frame rate must be positive, got %v", cfg.DefaultFPS)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:        cfg,
		fs:         fs,
		logger:     logger.WithComponent("controller"),
		newBrowser: newBrowser,
		newEncoder: newEncoder,
		rootCtx:    ctx,
		rootCancel: cancel,
		sessions:   make(chan struct{}, cfg.PoolSize),
		jobs:       make(map[string]*job),
	}

	if cfg.SweepSchedule != "" {
		c.cron = cron.New()
		if _, err := c.cron.AddFunc(cfg.SweepSchedule, c.sweep); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule retention sweep: %w", err)
		}
		c.cron.Start()
	}

	return c, nil
}

// Close cancels all running jobs and stops the retention sweep.
func (c *Controller) Close() {
	c.rootCancel()
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

// Submit registers a job and starts it asynchronously, returning its id
// immediately. The job stays pending while it waits for a session slot.
func (c *Controller) Submit(spec capture.JobSpec) (string, error) {
	if spec.Target == "" {
		return "", fmt.Errorf("job target must not be empty")
	}
	if spec.FPS <= 0 {
		spec.FPS = c.cfg.DefaultFPS
	}
	if spec.MaxFrames == 0 && spec.Duration == 0 {
		spec.Duration = c.cfg.DefaultDuration
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(c.rootCtx)
	j := &job{
		id:           id,
		spec:         spec,
		state:        capture.StatePending,
		budgetFrames: spec.FrameBudget(),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	c.mu.Lock()
	c.jobs[id] = j
	c.mu.Unlock()

	c.logger.Info("Job %s submitted for %s (%d frames at %.2f fps)", id, spec.Target, j.budgetFrames, spec.FPS)
	go c.run(ctx, j)
	return id, nil
}

// Status reports the latest known state of a job, including mid-failure.
func (c *Controller) Status(id string) (capture.JobStatus, error) {
	j, ok := c.lookup(id)
	if !ok {
		return capture.JobStatus{}, capture.ErrJobNotFound
	}
	return j.status(), nil
}

// Cancel signals a job to stop. It is advisory and non-blocking; the
// sampling loop observes it within one sampling interval, after which the
// job proceeds to a best-effort encode of whatever was staged.
func (c *Controller) Cancel(id string) error {
	j, ok := c.lookup(id)
	if !ok {
		return capture.ErrJobNotFound
	}
	j.cancel()
	return nil
}

// Result blocks until the job reaches a terminal state and returns its
// artifact, or the fatal error verbatim. Delivering the artifact counts as
// acknowledgement: the job's staging area is reclaimed at that point.
func (c *Controller) Result(ctx context.Context, id string) (capture.Artifact, error) {
	j, ok := c.lookup(id)
	if !ok {
		return capture.Artifact{}, capture.ErrJobNotFound
	}

	select {
	case <-ctx.Done():
		return capture.Artifact{}, ctx.Err()
	case <-j.done:
	}

	j.mu.Lock()
	artifact := j.artifact
	err := j.err
	j.mu.Unlock()

	if artifact == nil {
		return capture.Artifact{}, err
	}
	c.reclaimStaging(j)
	return *artifact, nil
}

func (c *Controller) lookup(id string) (*job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[id]
	return j, ok
}

// run executes one job: session checkout, sampling, then encode.
func (c *Controller) run(ctx context.Context, j *job) {
	// Fair checkout: channel send waiters are served in arrival order, so
	// a full pool queues jobs without starving any of them.
	select {
	case c.sessions <- struct{}{}:
	case <-ctx.Done():
		c.finish(j, nil, capture.ErrNoFrames)
		return
	}
	defer func() { <-c.sessions }()

	// The budget clock starts at session checkout; time spent queued for a
	// slot does not count against it.
	budget := j.spec.Budget
	if budget <= 0 {
		budget = c.cfg.DefaultBudget
	}
	runCtx, cancelBudget := context.WithTimeout(ctx, budget)
	defer cancelBudget()

	area, err := staging.Open(c.cfg.StagingRoot, j.id, c.fs)
	if err != nil {
		c.finish(j, nil, err)
		return
	}
	j.mu.Lock()
	j.area = area
	j.mu.Unlock()

	j.setState(capture.StateRendering)

	browser := c.newBrowser()
	if err := browser.Open(runCtx, j.spec.Target, c.cfg.Browser); err != nil {
		browser.Close()
		if runCtx.Err() != nil {
			// Cancelled before the surface came up: nothing was captured.
			c.finish(j, nil, capture.ErrNoFrames)
			return
		}
		c.logger.Error("Job %s renderer failed to open: %s", j.id, err)
		c.finish(j, nil, err)
		return
	}

	smp := sampler.New(browser, c.logger)
	smp.MaxRetries = c.cfg.MaxRetries
	smp.RetryBackoff = c.cfg.RetryBackoff

	res, serr := smp.Run(runCtx, area, sampler.Params{
		FPS:       j.spec.FPS,
		MaxFrames: j.budgetFramesLocked(),
	})
	browser.Close()

	j.mu.Lock()
	j.frames = res.FramesCaptured
	j.gaps = res.Gaps
	j.mu.Unlock()

	if serr != nil {
		// Fatal renderer failure. Staged frames stay put for inspection
		// until the retention sweep.
		c.logger.Error("Job %s rendering failed after %d frames: %s", j.id, res.FramesCaptured, serr)
		c.finish(j, nil, serr)
		return
	}

	if res.Stopped {
		j.setState(capture.StateStopped)
		c.logger.Info("Job %s stopped with %d frames staged", j.id, res.FramesCaptured)
	}

	c.encode(j, area, budget)
}

// encode seals the staging area and assembles the artifact. It runs on the
// controller's root context with a fresh window of the job's budget, so a
// job stopped on cancellation or budget expiry can still finish its
// best-effort encode, while Close still aborts it promptly.
func (c *Controller) encode(j *job, area *staging.Area, budget time.Duration) {
	j.setState(capture.StateEncoding)

	snap, err := area.Seal()
	if err != nil {
		c.finish(j, nil, err)
		return
	}

	encCtx, cancel := context.WithTimeout(c.rootCtx, budget)
	defer cancel()

	coord := assemble.New(c.newEncoder(), c.fs, c.logger)
	artifact, err := coord.Assemble(encCtx, snap, assemble.Request{
		FPS:        j.spec.FPS,
		Quality:    c.cfg.Quality,
		Bitrate:    c.cfg.Bitrate,
		OutputPath: filepath.Join(c.cfg.OutputDir, j.id+".mp4"),
	})
	if err != nil {
		c.logger.Error("Job %s encode failed: %s", j.id, err)
		c.finish(j, nil, err)
		return
	}

	c.logger.Info("Job %s completed: %s (%d ms, %d gap fills)", j.id, artifact.Path, artifact.DurationMs, artifact.Gaps)
	c.finish(j, &artifact, nil)
}

// finish moves a job to its terminal state and wakes Result waiters. It also
// releases the job's cancel context so the node detaches from the root
// context rather than accumulating over the controller's lifetime.
func (c *Controller) finish(j *job, artifact *capture.Artifact, err error) {
	j.mu.Lock()
	j.artifact = artifact
	j.err = err
	if err != nil {
		j.state = capture.StateFailed
	} else {
		j.state = capture.StateCompleted
	}
	j.finishedAt = time.Now()
	j.mu.Unlock()
	j.cancel()
	close(j.done)
}

func (j *job) budgetFramesLocked() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.budgetFrames
}

// reclaimStaging removes a job's frame directory once the artifact has been
// delivered. The artifact itself persists until externally reclaimed.
func (c *Controller) reclaimStaging(j *job) {
	j.mu.Lock()
	area := j.area
	j.area = nil
	j.mu.Unlock()

	if area == nil {
		return
	}
	if err := area.Remove(); err != nil {
		c.logger.Warn("Job %s staging cleanup failed: %s", j.id, err)
	}
}

// sweep reclaims staging for terminal jobs older than the retention window
// and drops their records. Jobs still encoding are never touched.
func (c *Controller) sweep() {
	cutoff := time.Now().Add(-c.cfg.Retention)

	c.mu.Lock()
	expired := make([]*job, 0)
	for id, j := range c.jobs {
		j.mu.Lock()
		done := j.state.Terminal() && j.finishedAt.Before(cutoff)
		j.mu.Unlock()
		if done {
			expired = append(expired, j)
			delete(c.jobs, id)
		}
	}
	c.mu.Unlock()

	for _, j := range expired {
		c.reclaimStaging(j)
		c.logger.Debug("Job %s expired from retention", j.id)
	}
}
