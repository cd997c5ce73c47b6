// Package domain holds the core task types.
// A Task is a unit of personal work that flows through the kanban board:
// idea → todo → in progress → waiting → done → archived.
package domain

import "time"

// Status tracks where a task sits on the board.
type Status string

const (
	StatusIdea       Status = "IDEA"
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusWaiting    Status = "WAITING"
	StatusDone       Status = "DONE"
	StatusArchived   Status = "ARCHIVED"
)

// ValidStatus reports whether s is a member of the status enumeration.
func ValidStatus(s Status) bool {
	switch s {
	case StatusIdea, StatusTodo, StatusInProgress, StatusWaiting, StatusDone, StatusArchived:
		return true
	}
	return false
}

// TaskType categorizes the kind of task.
type TaskType string

const (
	TaskNormal   TaskType = "NORMAL"
	TaskDeadline TaskType = "DEADLINE"
)

// Task is one item on the owner's board.
//
// SortOrder ranks the task within its (owner, status) column only; values are
// never compared across columns. TotalTimeSpent accumulates closed timer
// sessions in seconds and never decreases.
type Task struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Type           TaskType   `json:"type"`
	Status         Status     `json:"status"`
	Priority       int        `json:"priority,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	SortOrder      int64      `json:"sort_order"`
	TotalTimeSpent int64      `json:"total_time_spent"`
	IsTimerActive  bool       `json:"is_timer_active"`
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CompletedCount int        `json:"completed_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TimerRunning reports whether a timer session is open for this task.
func (t *Task) TimerRunning() bool {
	return t.IsTimerActive && t.TimerStartedAt != nil
}
