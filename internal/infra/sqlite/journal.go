package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/traction-app/traction/internal/domain"
)

// ─── Journals ───────────────────────────────────────────────────────────────

// GetJournal returns the journal for one (owner, day), or nil when none has
// been generated yet.
func (d *DB) GetJournal(ownerID, date string) (*domain.Journal, error) {
	row := d.db.QueryRow(
		`SELECT id, owner_id, date, content, created_at, updated_at
		 FROM journals WHERE owner_id = ? AND date = ?`,
		ownerID, date,
	)

	var j domain.Journal
	var createdAt, updatedAt int64
	err := row.Scan(&j.ID, &j.OwnerID, &j.Date, &j.Content, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	j.CreatedAt = time.Unix(createdAt, 0)
	j.UpdatedAt = time.Unix(updatedAt, 0)
	return &j, nil
}

// UpsertJournal inserts or rewrites the journal for one (owner, day).
func (d *DB) UpsertJournal(j domain.Journal) error {
	_, err := d.db.Exec(
		`INSERT INTO journals (id, owner_id, date, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner_id, date) DO UPDATE SET
			content=excluded.content,
			updated_at=excluded.updated_at`,
		j.ID, j.OwnerID, j.Date, j.Content, j.CreatedAt.Unix(), j.UpdatedAt.Unix(),
	)
	return err
}

// ─── User Settings ──────────────────────────────────────────────────────────

// GetSettingsBlob returns the raw settings blob for an owner; nil when none
// has been stored.
func (d *DB) GetSettingsBlob(ownerID string) ([]byte, error) {
	var blob string
	err := d.db.QueryRow(`SELECT blob FROM user_settings WHERE owner_id = ?`, ownerID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(blob), nil
}

// SetSettingsBlob stores the raw settings blob for an owner.
func (d *DB) SetSettingsBlob(ownerID string, blob []byte) error {
	_, err := d.db.Exec(
		`INSERT INTO user_settings (owner_id, blob, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET blob=excluded.blob, updated_at=excluded.updated_at`,
		ownerID, string(blob), time.Now().Unix(),
	)
	return err
}

// ListOwners returns every owner known to the store, from tasks and stored
// settings. The journal job iterates this set on each tick.
func (d *DB) ListOwners() ([]string, error) {
	rows, err := d.db.Query(
		`SELECT owner_id FROM tasks
		 UNION
		 SELECT owner_id FROM user_settings
		 ORDER BY owner_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}
