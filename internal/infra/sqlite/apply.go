package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/traction-app/traction/internal/domain"
)

// Change is the full effect of one logical engine operation: task rows to
// rewrite, timer sessions to close, at most one session to open, audit
// entries to append, and optionally a column reindex. The whole change
// commits or rolls back as a unit, so a crash can never leave a transition
// without its audit entry or a column with duplicate ranks.
type Change struct {
	Tasks   []*domain.Task
	Close   []domain.TimeEntry
	Open    *domain.TimeEntry
	History []domain.StatusHistoryEntry
	Reindex *Reindex
}

// Reindex rewrites sort_order for every listed task to its index in IDs,
// scoped to one (owner, status) column when Status is non-empty. At stamps
// updated_at on every rewritten row; a zero At falls back to wall-clock time.
type Reindex struct {
	OwnerID string
	Status  domain.Status
	IDs     []string
	At      time.Time
}

// Apply runs a Change in a single transaction.
func (d *DB) Apply(change Change) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, task := range change.Tasks {
		if err := execUpdateTask(tx, task); err != nil {
			return err
		}
	}
	for _, e := range change.Close {
		res, err := tx.Exec(
			`UPDATE time_entries SET end_time = ?, duration = ?, description = ?
			 WHERE id = ? AND end_time IS NULL`,
			nullableUnix(e.EndTime), e.Duration, nullStr(e.Description), e.ID,
		)
		if err != nil {
			return fmt.Errorf("close time entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("close time entry %s: %w", e.ID, domain.ErrTimerNotRunning)
		}
	}
	if e := change.Open; e != nil {
		if _, err := tx.Exec(
			`INSERT INTO time_entries (id, task_id, start_time, end_time, duration, description)
			 VALUES (?, ?, ?, NULL, NULL, ?)`,
			e.ID, e.TaskID, e.StartTime.Unix(), nullStr(e.Description),
		); err != nil {
			return fmt.Errorf("open time entry: %w", err)
		}
	}
	for _, entry := range change.History {
		if err := insertHistoryTx(tx, entry); err != nil {
			return err
		}
	}
	if r := change.Reindex; r != nil {
		if err := reindexTx(tx, r.OwnerID, r.Status, r.IDs, r.At); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReindexColumn rewrites sort_order for every listed task to its index in
// ids, as a single transaction. When status is non-empty each task must also
// sit in that column. Any id that does not match the owner (or the status
// filter) aborts the whole batch with domain.ErrTaskNotFound.
func (d *DB) ReindexColumn(ownerID string, status domain.Status, ids []string, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := reindexTx(tx, ownerID, status, ids, at); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func reindexTx(tx *sql.Tx, ownerID string, status domain.Status, ids []string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	now := at.Unix()
	for i, id := range ids {
		var res sql.Result
		var err error
		if status != "" {
			res, err = tx.Exec(
				`UPDATE tasks SET sort_order = ?, updated_at = ?
				 WHERE id = ? AND owner_id = ? AND status = ?`,
				int64(i), now, id, ownerID, string(status),
			)
		} else {
			res, err = tx.Exec(
				`UPDATE tasks SET sort_order = ?, updated_at = ?
				 WHERE id = ? AND owner_id = ?`,
				int64(i), now, id, ownerID,
			)
		}
		if err != nil {
			return fmt.Errorf("reindex %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("reindex %s: %w", id, domain.ErrTaskNotFound)
		}
	}
	return nil
}
