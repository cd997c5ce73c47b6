package tasks

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/traction-app/traction/internal/domain"
	"github.com/traction-app/traction/internal/infra/metrics"
	"github.com/traction-app/traction/internal/infra/sqlite"
)

// ─── Timer Exclusivity Manager ──────────────────────────────────────────────
//
// At most one task per owner runs a timer at any instant. Starting a timer
// steals it: every other running session for the owner is closed and credited
// in the same transaction, so two concurrent starts can never double-count a
// session. All operations run inside the per-owner critical section.

// StartResult is the outcome of StartTimer: the authoritative task state plus
// the tasks whose timers were stopped as a side effect.
type StartResult struct {
	Task        *domain.Task  `json:"task"`
	Interrupted []domain.Task `json:"interrupted_tasks"`
}

// SessionResult is the outcome of PauseTimer / StopTimer.
type SessionResult struct {
	Task            *domain.Task `json:"task"`
	SessionDuration int64        `json:"session_duration"` // seconds
}

// StartTimer opens a timer session on a task, closing any other running
// session for the same owner first. An IDEA task is promoted to IN_PROGRESS.
// Starting on a task whose timer is already running is a no-op success.
func (s *Service) StartTimer(ownerID, taskID, description string) (*StartResult, error) {
	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.Get(ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == domain.StatusDone || task.Status == domain.StatusArchived {
		return nil, fmt.Errorf("%w: task is %s", domain.ErrTaskNotStartable, task.Status)
	}
	if task.TimerRunning() {
		return &StartResult{Task: task, Interrupted: []domain.Task{}}, nil
	}

	now := s.now()
	var change sqlite.Change
	interrupted := []domain.Task{}

	running, err := s.db.RunningTasks(ownerID)
	if err != nil {
		return nil, err
	}
	for i := range running {
		other := &running[i]
		if other.ID == taskID {
			continue
		}
		if err := s.closeSession(other, now, "", &change); err != nil {
			return nil, err
		}
		change.Tasks = append(change.Tasks, other)
		interrupted = append(interrupted, *other)
	}

	startedAt := now
	task.IsTimerActive = true
	task.TimerStartedAt = &startedAt
	task.UpdatedAt = now
	change.Open = &domain.TimeEntry{
		ID:          uuid.NewString(),
		TaskID:      task.ID,
		StartTime:   now,
		Description: description,
	}

	promoted := false
	if task.Status == domain.StatusIdea {
		entry := s.applyStatus(task, domain.StatusInProgress, "timer started", now)
		change.History = append(change.History, entry)
		promoted = true
	}
	change.Tasks = append(change.Tasks, task)

	if err := s.db.Apply(change); err != nil {
		return nil, err
	}

	metrics.TimerStarts.Inc()
	metrics.ActiveTimers.Add(1)
	if promoted {
		metrics.StatusTransitions.WithLabelValues(string(domain.StatusInProgress)).Inc()
	}
	return &StartResult{Task: task, Interrupted: interrupted}, nil
}

// PauseTimer closes the running session, crediting its duration to the task.
// Pausing an idle timer is reported as a domain error, not ignored.
func (s *Service) PauseTimer(ownerID, taskID, description string) (*SessionResult, error) {
	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.Get(ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.TimerRunning() {
		return nil, domain.ErrTimerNotRunning
	}

	now := s.now()
	var change sqlite.Change
	if err := s.closeSession(task, now, description, &change); err != nil {
		return nil, err
	}
	change.Tasks = append(change.Tasks, task)

	if err := s.db.Apply(change); err != nil {
		return nil, err
	}

	duration := change.Close[0].Duration
	return &SessionResult{Task: task, SessionDuration: duration}, nil
}

// StopTimer is pause plus complete: the session closes with the same
// arithmetic as PauseTimer, then the task transitions to DONE so completion
// bookkeeping runs exactly once. Everything commits as one unit.
func (s *Service) StopTimer(ownerID, taskID, description string) (*SessionResult, error) {
	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.Get(ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.TimerRunning() {
		return nil, domain.ErrTimerNotRunning
	}

	now := s.now()
	var change sqlite.Change
	if err := s.closeSession(task, now, description, &change); err != nil {
		return nil, err
	}
	entry := s.applyStatus(task, domain.StatusDone, "completed via timer stop", now)
	change.Tasks = append(change.Tasks, task)
	change.History = append(change.History, entry)

	if err := s.db.Apply(change); err != nil {
		return nil, err
	}

	duration := change.Close[0].Duration
	metrics.StatusTransitions.WithLabelValues(string(domain.StatusDone)).Inc()
	return &SessionResult{Task: task, SessionDuration: duration}, nil
}

// closeSession mutates task for a session close and appends the closed entry
// to change. Elapsed time is wall-clock subtraction at second granularity,
// clamped to ≥ 0 so a backwards clock adjustment never produces a negative
// duration. The caller appends task to change.Tasks.
func (s *Service) closeSession(task *domain.Task, now time.Time, description string, change *sqlite.Change) error {
	open, err := s.db.OpenEntry(task.ID)
	if err != nil {
		return err
	}
	if open == nil || task.TimerStartedAt == nil {
		return fmt.Errorf("task %s: %w", task.ID, domain.ErrTimerNotRunning)
	}

	elapsed := int64(now.Sub(*task.TimerStartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	endTime := now
	open.EndTime = &endTime
	open.Duration = elapsed
	if description != "" {
		open.Description = description
	}
	change.Close = append(change.Close, *open)

	task.TotalTimeSpent += elapsed
	task.IsTimerActive = false
	task.TimerStartedAt = nil
	task.UpdatedAt = now

	metrics.TimerSessionsClosed.Inc()
	metrics.TimerSecondsTotal.Add(float64(elapsed))
	metrics.ActiveTimers.Sub(1)
	return nil
}
