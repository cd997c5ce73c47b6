package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/traction-app/traction/internal/domain"
	"github.com/traction-app/traction/internal/infra/metrics"
)

// Handler executes one job run. manual is true only for operator-invoked
// RunNow calls, which bypass any time-of-day gating inside the handler.
type Handler func(ctx context.Context, manual bool) error

// Config configures the runner.
type Config struct {
	Tick time.Duration // evaluation period (default 60s)
}

// DefaultConfig returns production runner defaults.
func DefaultConfig() Config {
	return Config{Tick: 60 * time.Second}
}

type job struct {
	id       string
	schedule Schedule
	handler  Handler
	nextRun  time.Time
	lastRun  time.Time
	lastErr  error
}

// Runner evaluates registered jobs on a fixed tick. It is an explicit
// service object: constructed once at startup, shut down through context
// cancellation, no process-global state.
type Runner struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	jobs    map[string]*job
	running bool
}

// NewRunner creates a runner with no registered jobs.
func NewRunner(cfg Config) *Runner {
	if cfg.Tick <= 0 {
		cfg.Tick = 60 * time.Second
	}
	return &Runner{
		config: cfg,
		now:    time.Now,
		jobs:   make(map[string]*job),
	}
}

// SetClock overrides the wall clock. Tests only.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// Register adds a named job. Duplicate ids and nil handlers are
// configuration errors; so is any schedule the registry cannot express,
// which Parse rejects before this point.
func (r *Runner) Register(id string, schedule Schedule, handler Handler) error {
	if id == "" || handler == nil {
		return fmt.Errorf("register job: id and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; exists {
		return fmt.Errorf("register job: duplicate id %q", id)
	}
	r.jobs[id] = &job{
		id:       id,
		schedule: schedule,
		handler:  handler,
		nextRun:  schedule.Next(r.now()),
	}
	return nil
}

// Run evaluates jobs every tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.mu.Lock()
	r.running = true
	for _, j := range r.jobs {
		j.nextRun = j.schedule.Next(r.now())
	}
	r.mu.Unlock()

	log.Printf("[scheduler] running, tick=%s jobs=%d", r.config.Tick, len(r.jobs))

	ticker := time.NewTicker(r.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			log.Printf("[scheduler] stopped")
			return
		case <-ticker.C:
			r.runDue(ctx)
		}
	}
}

// runDue executes every job whose next-run instant has passed, then rolls
// the job forward. One job's failure never blocks the others.
func (r *Runner) runDue(ctx context.Context) {
	now := r.now()

	r.mu.Lock()
	var due []*job
	for _, j := range r.jobs {
		if !j.nextRun.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].id < due[k].id })
	r.mu.Unlock()

	for _, j := range due {
		err := j.handler(ctx, false)

		r.mu.Lock()
		j.lastRun = now
		j.lastErr = err
		j.nextRun = j.schedule.Next(now)
		r.mu.Unlock()

		if err != nil {
			log.Printf("[scheduler] job %s failed: %v", j.id, err)
			metrics.SchedulerJobRuns.WithLabelValues(j.id, "error").Inc()
			continue
		}
		metrics.SchedulerJobRuns.WithLabelValues(j.id, "ok").Inc()
	}
}

// RunNow executes a job immediately, bypassing its schedule and any
// time-of-day gating inside the handler.
func (r *Runner) RunNow(ctx context.Context, id string) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrJobNotFound, id)
	}

	err := j.handler(ctx, true)

	r.mu.Lock()
	j.lastRun = r.now()
	j.lastErr = err
	r.mu.Unlock()

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.SchedulerJobRuns.WithLabelValues(id, "manual_"+result).Inc()
	return err
}

// ─── Status & Inspection ────────────────────────────────────────────────────

// JobStatus describes one registered job.
type JobStatus struct {
	ID        string    `json:"id"`
	Schedule  string    `json:"schedule"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Status is a snapshot of the runner.
type Status struct {
	IsRunning bool        `json:"is_running"`
	Jobs      []JobStatus `json:"jobs"`
}

// IsRunning reports whether the evaluation loop is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status returns the current runner snapshot, jobs sorted by id.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]JobStatus, 0, len(r.jobs))
	for _, j := range r.jobs {
		js := JobStatus{
			ID:       j.id,
			Schedule: j.schedule.String(),
			NextRun:  j.nextRun,
			LastRun:  j.lastRun,
		}
		if j.lastErr != nil {
			js.LastError = j.lastErr.Error()
		}
		jobs = append(jobs, js)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })

	return Status{IsRunning: r.running, Jobs: jobs}
}
