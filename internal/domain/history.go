package domain

import "time"

// StatusHistoryEntry is one immutable audit record of a status change.
// FromStatus is empty only for the creation entry. Exactly one entry exists
// per accepted transition; no-op transitions write nothing.
type StatusHistoryEntry struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	FromStatus Status    `json:"from_status,omitempty"`
	ToStatus   Status    `json:"to_status"`
	ChangedAt  time.Time `json:"changed_at"`
	Note       string    `json:"note,omitempty"`
}

// TimeEntry is one timer session. EndTime and Duration are set together when
// the session closes. At most one entry per task has a nil EndTime, and at
// most one such open entry exists per owner across all tasks.
type TimeEntry struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"task_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Duration    int64      `json:"duration,omitempty"` // seconds, set on close
	Description string     `json:"description,omitempty"`
}

// Open reports whether the session is still running.
func (e *TimeEntry) Open() bool {
	return e.EndTime == nil
}
