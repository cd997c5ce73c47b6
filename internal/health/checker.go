// Package health runs periodic self-checks over the daemon's moving parts:
// the sqlite store, the data directory and the background scheduler.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Check is a single named probe.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status is the result of one probe.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is the subset of the store the checker needs.
type Pinger interface {
	Ping() error
}

// SchedulerStatus reports whether the background runner loop is alive.
type SchedulerStatus interface {
	IsRunning() bool
}

// Checker evaluates its probes on a fixed interval and keeps the latest
// snapshot for the health endpoint.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker builds the standard probe set. scheduler may be nil when the
// runner is disabled by configuration; its probe is skipped then.
func NewChecker(store Pinger, dataDir string, scheduler SchedulerStatus) *Checker {
	checks := []Check{
		{
			Name: "sqlite",
			CheckFn: func(ctx context.Context) error {
				return store.Ping()
			},
		},
		{
			Name: "data_dir",
			CheckFn: func(ctx context.Context) error {
				return checkDataDir(dataDir)
			},
		},
	}
	if scheduler != nil {
		checks = append(checks, Check{
			Name: "scheduler",
			CheckFn: func(ctx context.Context) error {
				if !scheduler.IsRunning() {
					return fmt.Errorf("scheduler loop is not running")
				}
				return nil
			},
		})
	}
	return &Checker{interval: 60 * time.Second, checks: checks}
}

// Run evaluates all probes immediately, then on each interval until ctx is
// cancelled. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{Name: check.Name, CheckedAt: time.Now()}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
		} else {
			s.Healthy = true
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest snapshot.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy reports whether every probe passed on the last run.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", dir)
	}
	return nil
}
