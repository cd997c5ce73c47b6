package tasks

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/traction-app/traction/internal/domain"
	"github.com/traction-app/traction/internal/infra/metrics"
	"github.com/traction-app/traction/internal/infra/sqlite"
)

// ─── Status Transition Engine ───────────────────────────────────────────────

// Transition moves a task to target status. Equal source and target is a
// successful no-op: the unchanged task is returned and nothing is written.
// Entering DONE stamps completed_at, bumps completed_count and credits any
// running timer session; leaving DONE clears completed_at. The row update and
// the audit entry commit atomically.
func (s *Service) Transition(ownerID, taskID string, target domain.Status, note string) (*domain.Task, error) {
	if !domain.ValidStatus(target) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, target)
	}

	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.Get(ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == target {
		return task, nil
	}

	now := s.now()
	var change sqlite.Change
	if target == domain.StatusDone && task.TimerRunning() {
		// Implicit pause-and-credit: the close-session arithmetic runs once
		// here, never again in completion bookkeeping.
		if err := s.closeSession(task, now, "", &change); err != nil {
			return nil, err
		}
	}

	entry := s.applyStatus(task, target, note, now)
	change.Tasks = append(change.Tasks, task)
	change.History = append(change.History, entry)

	if err := s.db.Apply(change); err != nil {
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(target)).Inc()
	return task, nil
}

// applyStatus mutates the in-memory task for an accepted transition and
// returns the audit entry to persist alongside it. Caller guarantees the
// target differs from the current status.
func (s *Service) applyStatus(task *domain.Task, target domain.Status, note string, now time.Time) domain.StatusHistoryEntry {
	from := task.Status

	if target == domain.StatusDone {
		t := now
		task.CompletedAt = &t
		task.CompletedCount++
	} else if from == domain.StatusDone {
		// completed_count is never decremented
		task.CompletedAt = nil
	}

	task.Status = target
	task.UpdatedAt = now

	if note == "" {
		note = fmt.Sprintf("status changed to %s", target)
	}
	return domain.StatusHistoryEntry{
		ID:         uuid.NewString(),
		TaskID:     task.ID,
		FromStatus: from,
		ToStatus:   target,
		ChangedAt:  now,
		Note:       note,
	}
}
