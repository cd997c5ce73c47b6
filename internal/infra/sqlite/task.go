package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/traction-app/traction/internal/domain"
)

const taskColumns = `id, owner_id, title, description, type, status, priority, due_date,
	sort_order, total_time_spent, is_timer_active, timer_started_at,
	completed_at, completed_count, created_at, updated_at`

// ─── Task Repository ────────────────────────────────────────────────────────

// InsertTask creates a task together with its creation audit entry in one
// transaction.
func (d *DB) InsertTask(task domain.Task, entry domain.StatusHistoryEntry) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.OwnerID, task.Title, task.Description,
		string(task.Type), string(task.Status), task.Priority, nullableUnix(task.DueDate),
		task.SortOrder, task.TotalTimeSpent, task.IsTimerActive, nullableUnix(task.TimerStartedAt),
		nullableUnix(task.CompletedAt), task.CompletedCount, task.CreatedAt.Unix(), task.UpdatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	if err := insertHistoryTx(tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// GetTask retrieves a task by id scoped to its owner. Returns nil when the
// task does not exist or belongs to a different owner.
func (d *DB) GetTask(ownerID, id string) (*domain.Task, error) {
	row := d.db.QueryRow(
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	return scanTask(row)
}

// ListColumn returns the tasks in one (owner, status) column in display
// order: sort_order ascending, creation time descending as the tie break.
func (d *DB) ListColumn(ownerID string, status domain.Status) ([]domain.Task, error) {
	rows, err := d.db.Query(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE owner_id = ? AND status = ?
		 ORDER BY sort_order ASC, created_at DESC`,
		ownerID, string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListTasks returns all tasks for an owner, board order within each status.
func (d *DB) ListTasks(ownerID string) ([]domain.Task, error) {
	rows, err := d.db.Query(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE owner_id = ?
		 ORDER BY status, sort_order ASC, created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// MinSortOrder returns the smallest sort_order in a column. ok is false when
// the column is empty.
func (d *DB) MinSortOrder(ownerID string, status domain.Status) (min int64, ok bool, err error) {
	var v sql.NullInt64
	err = d.db.QueryRow(
		`SELECT MIN(sort_order) FROM tasks WHERE owner_id = ? AND status = ?`,
		ownerID, string(status),
	).Scan(&v)
	if err != nil {
		return 0, false, err
	}
	return v.Int64, v.Valid, nil
}

// UpdateTask rewrites every mutable field of a task row.
func (d *DB) UpdateTask(task *domain.Task) error {
	return execUpdateTask(d.db, task)
}

// ─── Scanning ───────────────────────────────────────────────────────────────

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func execUpdateTask(e execer, task *domain.Task) error {
	res, err := e.Exec(
		`UPDATE tasks SET
			title = ?, description = ?, type = ?, status = ?, priority = ?, due_date = ?,
			sort_order = ?, total_time_spent = ?, is_timer_active = ?, timer_started_at = ?,
			completed_at = ?, completed_count = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		task.Title, task.Description, string(task.Type), string(task.Status),
		task.Priority, nullableUnix(task.DueDate),
		task.SortOrder, task.TotalTimeSpent, task.IsTimerActive, nullableUnix(task.TimerStartedAt),
		nullableUnix(task.CompletedAt), task.CompletedCount, task.UpdatedAt.Unix(),
		task.ID, task.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var dueDate, timerStartedAt, completedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := s.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Type, &t.Status,
		&t.Priority, &dueDate, &t.SortOrder, &t.TotalTimeSpent,
		&t.IsTimerActive, &timerStartedAt, &completedAt, &t.CompletedCount,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.DueDate = unixPtr(dueDate)
	t.TimerStartedAt = unixPtr(timerStartedAt)
	t.CompletedAt = unixPtr(completedAt)
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
