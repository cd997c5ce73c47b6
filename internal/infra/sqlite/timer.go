package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/traction-app/traction/internal/domain"
)

// ─── Timer Sessions ─────────────────────────────────────────────────────────

// RunningTasks returns every task of an owner with an active timer. The
// single-active-timer rule makes this at most one row once the system is
// consistent, but the query tolerates more for the steal path.
func (d *DB) RunningTasks(ownerID string) ([]domain.Task, error) {
	rows, err := d.db.Query(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE owner_id = ? AND is_timer_active = 1
		 ORDER BY created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// OpenEntry returns a task's open timer session, or nil when idle.
func (d *DB) OpenEntry(taskID string) (*domain.TimeEntry, error) {
	row := d.db.QueryRow(
		`SELECT id, task_id, start_time, end_time, duration, description
		 FROM time_entries WHERE task_id = ? AND end_time IS NULL`,
		taskID,
	)
	return scanTimeEntry(row)
}

// ListTimeEntries returns a task's sessions oldest first.
func (d *DB) ListTimeEntries(taskID string) ([]domain.TimeEntry, error) {
	rows, err := d.db.Query(
		`SELECT id, task_id, start_time, end_time, duration, description
		 FROM time_entries WHERE task_id = ? ORDER BY start_time ASC, rowid ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// SumClosedDurations totals the closed session durations for a task.
func (d *DB) SumClosedDurations(taskID string) (int64, error) {
	var total sql.NullInt64
	err := d.db.QueryRow(
		`SELECT SUM(duration) FROM time_entries WHERE task_id = ? AND end_time IS NOT NULL`,
		taskID,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// CompletedBetween returns an owner's tasks completed in [from, to), oldest
// completion first. Used by journal generation for one calendar day.
func (d *DB) CompletedBetween(ownerID string, from, to time.Time) ([]domain.Task, error) {
	rows, err := d.db.Query(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE owner_id = ? AND completed_at >= ? AND completed_at < ?
		 ORDER BY completed_at ASC, created_at ASC`,
		ownerID, from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func scanTimeEntry(s scanner) (*domain.TimeEntry, error) {
	var e domain.TimeEntry
	var startTime int64
	var endTime, duration sql.NullInt64
	var desc sql.NullString

	err := s.Scan(&e.ID, &e.TaskID, &startTime, &endTime, &duration, &desc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan time entry: %w", err)
	}

	e.StartTime = time.Unix(startTime, 0)
	e.EndTime = unixPtr(endTime)
	if duration.Valid {
		e.Duration = duration.Int64
	}
	e.Description = desc.String
	return &e, nil
}
