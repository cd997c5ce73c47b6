// Package tasks implements the board engines: the status state machine, the
// column ordering engine, and the timer exclusivity manager. All three share
// one task store and one per-owner critical section, so concurrent calls for
// the same owner never interleave partial writes.
package tasks

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/traction-app/traction/internal/domain"
	"github.com/traction-app/traction/internal/infra/metrics"
	"github.com/traction-app/traction/internal/infra/sqlite"
)

// Service owns every mutation of task state.
type Service struct {
	db  *sqlite.DB
	now func() time.Time

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

// NewService creates a task service backed by the given store.
func NewService(db *sqlite.DB) *Service {
	return &Service{
		db:     db,
		now:    time.Now,
		owners: make(map[string]*sync.Mutex),
	}
}

// SetClock overrides the wall clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ownerLock returns the mutex serializing all mutations for one owner.
func (s *Service) ownerLock(ownerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.owners[ownerID]
	if !ok {
		l = &sync.Mutex{}
		s.owners[ownerID] = l
	}
	return l
}

// CreateParams carries the caller-supplied fields for a new task.
type CreateParams struct {
	Title       string
	Description string
	Type        domain.TaskType
	Status      domain.Status
	Priority    int
	DueDate     *time.Time
}

// Create inserts a new task at the front of its status column. The prepend
// rank is min(existing)-1 so no other row is rewritten. A creation audit
// entry (empty from-status) is written in the same transaction.
func (s *Service) Create(ownerID string, p CreateParams) (*domain.Task, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if strings.ContainsAny(p.Title, "\r\n") {
		return nil, fmt.Errorf("%w: title must be a single line", domain.ErrValidation)
	}
	if p.Status == "" {
		p.Status = domain.StatusIdea
	}
	if !domain.ValidStatus(p.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, p.Status)
	}
	if p.Type == "" {
		p.Type = domain.TaskNormal
	}

	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	sortOrder := int64(0)
	if min, ok, err := s.db.MinSortOrder(ownerID, p.Status); err != nil {
		return nil, err
	} else if ok {
		sortOrder = min - 1
	}

	task := domain.Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Type,
		Status:      p.Status,
		Priority:    p.Priority,
		DueDate:     p.DueDate,
		SortOrder:   sortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == domain.StatusDone {
		// Created directly in DONE: completion bookkeeping still applies.
		t := now
		task.CompletedAt = &t
		task.CompletedCount = 1
	}

	entry := domain.StatusHistoryEntry{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		ToStatus:  task.Status,
		ChangedAt: now,
		Note:      "task created",
	}
	if err := s.db.InsertTask(task, entry); err != nil {
		return nil, err
	}
	metrics.TasksCreated.Inc()
	return &task, nil
}

// Get returns one task scoped to its owner.
func (s *Service) Get(ownerID, taskID string) (*domain.Task, error) {
	task, err := s.db.GetTask(ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// List returns an owner's tasks, optionally restricted to one column, in
// display order.
func (s *Service) List(ownerID string, status domain.Status) ([]domain.Task, error) {
	if status == "" {
		return s.db.ListTasks(ownerID)
	}
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	return s.db.ListColumn(ownerID, status)
}

// History returns the audit trail for one task.
func (s *Service) History(ownerID, taskID string) ([]domain.StatusHistoryEntry, error) {
	if _, err := s.Get(ownerID, taskID); err != nil {
		return nil, err
	}
	return s.db.ListHistory(taskID)
}

// TimeEntries returns the timer sessions for one task.
func (s *Service) TimeEntries(ownerID, taskID string) ([]domain.TimeEntry, error) {
	if _, err := s.Get(ownerID, taskID); err != nil {
		return nil, err
	}
	return s.db.ListTimeEntries(taskID)
}
