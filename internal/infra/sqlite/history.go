package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/traction-app/traction/internal/domain"
)

// ─── Status History ─────────────────────────────────────────────────────────

func insertHistoryTx(tx *sql.Tx, entry domain.StatusHistoryEntry) error {
	_, err := tx.Exec(
		`INSERT INTO status_history (id, task_id, from_status, to_status, changed_at, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TaskID, nullStr(string(entry.FromStatus)),
		string(entry.ToStatus), entry.ChangedAt.Unix(), nullStr(entry.Note),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// ListHistory returns a task's audit entries oldest first. Entries within
// the same second keep insertion order via rowid.
func (d *DB) ListHistory(taskID string) ([]domain.StatusHistoryEntry, error) {
	rows, err := d.db.Query(
		`SELECT id, task_id, from_status, to_status, changed_at, note
		 FROM status_history WHERE task_id = ? ORDER BY changed_at ASC, rowid ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.StatusHistoryEntry
	for rows.Next() {
		var e domain.StatusHistoryEntry
		var from, note sql.NullString
		var changedAt int64
		if err := rows.Scan(&e.ID, &e.TaskID, &from, &e.ToStatus, &changedAt, &note); err != nil {
			return nil, err
		}
		e.FromStatus = domain.Status(from.String)
		e.Note = note.String
		e.ChangedAt = time.Unix(changedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountHistory returns the number of audit entries for a task.
func (d *DB) CountHistory(taskID string) (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM status_history WHERE task_id = ?`, taskID).Scan(&n)
	return n, err
}
