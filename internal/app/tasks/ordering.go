package tasks

import (
	"fmt"

	"github.com/traction-app/traction/internal/domain"
	"github.com/traction-app/traction/internal/infra/metrics"
	"github.com/traction-app/traction/internal/infra/sqlite"
)

// ─── Position / Ordering Engine ─────────────────────────────────────────────
//
// Two strategies on purpose: creation prepends with min(sort_order)-1 so no
// other row is touched, while explicit reorder/move operations densely
// renumber the affected column to 0..n-1.

// Reorder rewrites sort_order for every listed task to its index in ids.
// All listed tasks must belong to the owner (and to status when given) or
// the whole batch is rejected; partial application never happens. An empty
// list is a successful no-op.
func (s *Service) Reorder(ownerID string, ids []string, status domain.Status) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if status != "" && !domain.ValidStatus(status) {
		return 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}

	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	n, err := s.db.ReindexColumn(ownerID, status, ids, s.now())
	if err != nil {
		return 0, err
	}
	metrics.ColumnReorders.Inc()
	return n, nil
}

// MoveToPosition splices a task into its column at index and densely
// renumbers the column. A nil index means the front, following the rule that
// actions bringing a task to attention put it first. The index is clamped to
// [0, len].
func (s *Service) MoveToPosition(ownerID, taskID string, index *int) (*domain.Task, error) {
	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.Get(ownerID, taskID)
	if err != nil {
		return nil, err
	}

	ids, pos, err := s.spliceColumn(ownerID, task.Status, taskID, index)
	if err != nil {
		return nil, err
	}
	task.SortOrder = int64(pos)

	if err := s.db.Apply(sqlite.Change{
		Reindex: &sqlite.Reindex{OwnerID: ownerID, Status: task.Status, IDs: ids, At: s.now()},
	}); err != nil {
		return nil, err
	}
	metrics.ColumnReorders.Inc()
	return task, nil
}

// TransitionWithPosition combines a status transition with an insertion into
// the destination column, as one atomic operation. The source column is not
// renumbered; its ranks only ever order tasks relative to each other. A nil
// index inserts at the front.
func (s *Service) TransitionWithPosition(ownerID, taskID string, target domain.Status, index *int, note string) (*domain.Task, error) {
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

	now := s.now()
	var change sqlite.Change
	changed := task.Status != target
	if changed {
		if target == domain.StatusDone && task.TimerRunning() {
			if err := s.closeSession(task, now, "", &change); err != nil {
				return nil, err
			}
		}
		entry := s.applyStatus(task, target, note, now)
		change.Tasks = append(change.Tasks, task)
		change.History = append(change.History, entry)
	}

	ids, pos, err := s.spliceColumn(ownerID, target, taskID, index)
	if err != nil {
		return nil, err
	}
	task.SortOrder = int64(pos)
	change.Reindex = &sqlite.Reindex{OwnerID: ownerID, Status: target, IDs: ids, At: now}

	if err := s.db.Apply(change); err != nil {
		return nil, err
	}
	if changed {
		metrics.StatusTransitions.WithLabelValues(string(target)).Inc()
	}
	return task, nil
}

// spliceColumn computes the destination column's id list with taskID removed
// and re-inserted at index (clamped; nil means front). Returns the final list
// and the task's resulting position.
func (s *Service) spliceColumn(ownerID string, status domain.Status, taskID string, index *int) ([]string, int, error) {
	column, err := s.db.ListColumn(ownerID, status)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(column)+1)
	for _, t := range column {
		if t.ID != taskID {
			ids = append(ids, t.ID)
		}
	}

	pos := 0
	if index != nil {
		pos = *index
		if pos < 0 {
			pos = 0
		}
		if pos > len(ids) {
			pos = len(ids)
		}
	}

	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = taskID
	return ids, pos, nil
}
