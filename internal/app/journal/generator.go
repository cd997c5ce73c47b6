// Package journal generates the end-of-day journal from completed tasks.
// Generation is idempotent: tasks already present in the day's journal are
// matched by exact title text and skipped, so re-running with no new
// completions never changes a byte.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/traction-app/traction/internal/domain"
	"github.com/traction-app/traction/internal/infra/metrics"
	"github.com/traction-app/traction/internal/infra/sqlite"
)

const taskLinePrefix = "- [x] "

// journalTitle flattens a title to the single-line form stored in journal
// content. Emission and dedup both go through this, so a title that needed
// flattening still matches itself when the content is parsed back.
func journalTitle(title string) string {
	title = strings.ReplaceAll(title, "\r\n", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	return strings.ReplaceAll(title, "\r", " ")
}

// Generator builds daily journals for every owner.
type Generator struct {
	db          *sqlite.DB
	now         func() time.Time
	defaultTime string
	generate    func(ownerID string, day time.Time) error
}

// NewGenerator creates a journal generator backed by the given store.
func NewGenerator(db *sqlite.DB) *Generator {
	g := &Generator{db: db, now: time.Now}
	g.generate = g.GenerateFor
	return g
}

// SetClock overrides the wall clock. Tests only.
func (g *Generator) SetClock(now func() time.Time) { g.now = now }

// SetDefaultScheduleTime overrides the built-in fallback schedule time for
// owners who never stored settings. Malformed values are ignored.
func (g *Generator) SetDefaultScheduleTime(clock string) {
	if _, _, err := domain.ParseClock(clock); err == nil {
		g.defaultTime = clock
	}
}

// decodeSettings resolves an owner's settings blob, applying the daemon-level
// default schedule time when the owner has none stored.
func (g *Generator) decodeSettings(blob []byte) domain.UserSettings {
	settings := domain.DecodeUserSettings(blob)
	if len(blob) == 0 && g.defaultTime != "" {
		settings.AutoJournal.ScheduleTime = g.defaultTime
	}
	return settings
}

// Run is the scheduled job body, registered every minute. Each owner is
// gated independently by their configured daily time (±1 minute tolerance to
// absorb tick jitter); a manual run bypasses the gate. One owner's failure is
// logged and counted, never propagated, so the loop always finishes.
func (g *Generator) Run(ctx context.Context, manual bool) error {
	owners, err := g.db.ListOwners()
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	now := g.now()
	var generated, skipped, failed int
	for _, owner := range owners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch err := g.runForOwner(owner, now, manual); {
		case err == errGateClosed:
			skipped++
		case err != nil:
			failed++
			log.Printf("[journal] owner %s: generation failed: %v", owner, err)
			metrics.JournalUsersProcessed.WithLabelValues("error").Inc()
		default:
			generated++
			metrics.JournalUsersProcessed.WithLabelValues("ok").Inc()
		}
	}

	if generated > 0 || failed > 0 {
		log.Printf("[journal] run done: generated=%d skipped=%d failed=%d manual=%v",
			generated, skipped, failed, manual)
	}
	return nil
}

// errGateClosed marks an owner whose configured time does not match this
// tick. Internal control flow, never surfaced.
var errGateClosed = fmt.Errorf("journal gate closed")

func (g *Generator) runForOwner(ownerID string, now time.Time, manual bool) error {
	blob, err := g.db.GetSettingsBlob(ownerID)
	if err != nil {
		return err
	}
	settings := g.decodeSettings(blob)

	if !manual {
		if !settings.AutoJournal.DailySchedule {
			return errGateClosed
		}
		if !matchesClock(now, settings.AutoJournal.ScheduleTime) {
			return errGateClosed
		}
	}
	return g.generate(ownerID, now)
}

// GenerateFor creates or merges the journal for the calendar day containing
// day. Only completions not yet represented (by exact title) are appended;
// with nothing new the stored journal is left untouched.
func (g *Generator) GenerateFor(ownerID string, day time.Time) error {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	completed, err := g.db.CompletedBetween(ownerID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	date := domain.JournalDate(day)
	existing, err := g.db.GetJournal(ownerID, date)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	if existing != nil {
		for _, title := range parseTaskLines(existing.Content) {
			seen[title] = true
		}
	}

	var fresh []string
	for _, t := range completed {
		title := journalTitle(t.Title)
		if !seen[title] {
			seen[title] = true
			fresh = append(fresh, taskLinePrefix+title)
		}
	}

	if len(fresh) == 0 {
		return nil // nothing new: true no-op, no content drift
	}

	now := g.now()
	if existing == nil {
		content := fmt.Sprintf("# Journal %s\n\n## Completed\n%s\n", date, strings.Join(fresh, "\n"))
		j := domain.Journal{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			Date:      date,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		metrics.JournalTasksAppended.Add(float64(len(fresh)))
		return g.db.UpsertJournal(j)
	}

	existing.Content = strings.TrimRight(existing.Content, "\n") + "\n" + strings.Join(fresh, "\n") + "\n"
	existing.UpdatedAt = now
	metrics.JournalTasksAppended.Add(float64(len(fresh)))
	return g.db.UpsertJournal(*existing)
}

// Get returns the stored journal for one (owner, day).
func (g *Generator) Get(ownerID, date string) (*domain.Journal, error) {
	j, err := g.db.GetJournal(ownerID, date)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, domain.ErrJournalNotFound
	}
	return j, nil
}

// Settings returns the decoded settings for an owner, defaults when absent
// or corrupt.
func (g *Generator) Settings(ownerID string) (domain.UserSettings, error) {
	blob, err := g.db.GetSettingsBlob(ownerID)
	if err != nil {
		return domain.UserSettings{}, err
	}
	return g.decodeSettings(blob), nil
}

// UpdateSettings validates and stores an owner's settings.
func (g *Generator) UpdateSettings(ownerID string, settings domain.UserSettings) (domain.UserSettings, error) {
	if _, _, err := domain.ParseClock(settings.AutoJournal.ScheduleTime); err != nil {
		return domain.UserSettings{}, err
	}
	blob, err := json.Marshal(settings)
	if err != nil {
		return domain.UserSettings{}, err
	}
	if err := g.db.SetSettingsBlob(ownerID, blob); err != nil {
		return domain.UserSettings{}, err
	}
	return settings, nil
}

// parseTaskLines extracts the titles previously emitted into content.
func parseTaskLines(content string) []string {
	var titles []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, taskLinePrefix) {
			titles = append(titles, strings.TrimPrefix(line, taskLinePrefix))
		}
	}
	return titles
}

// matchesClock reports whether now falls within ±1 minute of the "HH:MM"
// wall-clock time, wrapping around midnight.
func matchesClock(now time.Time, clock string) bool {
	hour, minute, err := domain.ParseClock(clock)
	if err != nil {
		return false
	}
	nowMin := now.Hour()*60 + now.Minute()
	schedMin := hour*60 + minute
	diff := nowMin - schedMin
	if diff < 0 {
		diff = -diff
	}
	if diff > 12*60 {
		diff = 24*60 - diff
	}
	return diff <= 1
}
