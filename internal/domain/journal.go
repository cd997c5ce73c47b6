package domain

import "time"

// Journal is the generated end-of-day record of completed tasks for one owner
// and one calendar day. Date uses the YYYY-MM-DD form.
type Journal struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Date      string    `json:"date"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JournalDate formats t as a journal day key in t's location.
func JournalDate(t time.Time) string {
	return t.Format("2006-01-02")
}
