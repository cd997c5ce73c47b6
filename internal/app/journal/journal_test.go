package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/traction-app/traction/internal/domain"
	"github.com/traction-app/traction/internal/infra/sqlite"
)

func newTestGenerator(t *testing.T) (*Generator, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("sqlite.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewGenerator(db), db
}

// completeTask inserts a task already completed at the given instant.
func completeTask(t *testing.T, db *sqlite.DB, owner, title string, completedAt time.Time) {
	t.Helper()
	task := domain.Task{
		ID:             uuid.NewString(),
		OwnerID:        owner,
		Title:          title,
		Type:           domain.TaskNormal,
		Status:         domain.StatusDone,
		CompletedAt:    &completedAt,
		CompletedCount: 1,
		CreatedAt:      completedAt.Add(-time.Hour),
		UpdatedAt:      completedAt,
	}
	entry := domain.StatusHistoryEntry{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		ToStatus:  domain.StatusDone,
		ChangedAt: completedAt,
		Note:      "task created",
	}
	if err := db.InsertTask(task, entry); err != nil {
		t.Fatalf("InsertTask() error: %v", err)
	}
}

var testDay = time.Date(2025, 6, 2, 23, 55, 0, 0, time.Local)

// ─── Generation ─────────────────────────────────────────────────────────────

func TestGenerateFor_CreatesJournalFromCompletions(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-10*time.Hour))
	completeTask(t, db, "alice", "Review notes", testDay.Add(-2*time.Hour))

	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("GenerateFor() error: %v", err)
	}

	j, err := g.Get("alice", "2025-06-02")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	want := "# Journal 2025-06-02\n\n## Completed\n- [x] Ship release\n- [x] Review notes\n"
	if j.Content != want {
		t.Errorf("content = %q, want %q", j.Content, want)
	}
}

func TestGenerateFor_NoCompletionsNoJournal(t *testing.T) {
	g, db := newTestGenerator(t)
	// A completion on another day must not produce today's journal.
	completeTask(t, db, "alice", "Yesterday", testDay.AddDate(0, 0, -1))

	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("GenerateFor() error: %v", err)
	}
	if _, err := g.Get("alice", "2025-06-02"); !errors.Is(err, domain.ErrJournalNotFound) {
		t.Errorf("Get() = %v, want ErrJournalNotFound", err)
	}
}

func TestGenerateFor_RerunIsByteIdentical(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-time.Hour))

	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("first GenerateFor() error: %v", err)
	}
	first, _ := g.Get("alice", "2025-06-02")

	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("second GenerateFor() error: %v", err)
	}
	second, _ := g.Get("alice", "2025-06-02")

	if second.Content != first.Content {
		t.Errorf("content drifted on rerun:\nfirst:  %q\nsecond: %q", first.Content, second.Content)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("rerun with nothing new must not rewrite the journal row")
	}
}

func TestGenerateFor_MergesOnlyNewTitles(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-3*time.Hour))

	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("GenerateFor() error: %v", err)
	}

	completeTask(t, db, "alice", "Late fix", testDay.Add(-time.Minute))
	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("merge GenerateFor() error: %v", err)
	}

	j, err := g.Get("alice", "2025-06-02")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	want := "# Journal 2025-06-02\n\n## Completed\n- [x] Ship release\n- [x] Late fix\n"
	if j.Content != want {
		t.Errorf("merged content = %q, want %q", j.Content, want)
	}
}

func TestGenerateFor_MultiLineTitleStaysIdempotent(t *testing.T) {
	g, db := newTestGenerator(t)
	// A title spanning lines must flatten to one journal line, or it could
	// never match itself when the stored content is parsed back.
	completeTask(t, db, "alice", "fix parser\n- [x] tricky case", testDay.Add(-time.Hour))

	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("first GenerateFor() error: %v", err)
	}
	first, _ := g.Get("alice", "2025-06-02")
	want := "# Journal 2025-06-02\n\n## Completed\n- [x] fix parser - [x] tricky case\n"
	if first.Content != want {
		t.Errorf("content = %q, want %q", first.Content, want)
	}

	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("second GenerateFor() error: %v", err)
	}
	second, _ := g.Get("alice", "2025-06-02")
	if second.Content != first.Content {
		t.Errorf("content drifted on rerun:\nfirst:  %q\nsecond: %q", first.Content, second.Content)
	}
}

func TestGenerateFor_OwnersAreIsolated(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Alice's task", testDay.Add(-time.Hour))
	completeTask(t, db, "bob", "Bob's task", testDay.Add(-time.Hour))

	if err := g.GenerateFor("alice", testDay); err != nil {
		t.Fatalf("GenerateFor() error: %v", err)
	}

	j, err := g.Get("alice", "2025-06-02")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if j.Content != "# Journal 2025-06-02\n\n## Completed\n- [x] Alice's task\n" {
		t.Errorf("alice's journal leaked other owners: %q", j.Content)
	}
	if _, err := g.Get("bob", "2025-06-02"); !errors.Is(err, domain.ErrJournalNotFound) {
		t.Error("bob's journal should not exist yet")
	}
}

// ─── Scheduled run gating ───────────────────────────────────────────────────

func TestRun_GeneratesAtConfiguredTime(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-time.Hour))

	// Default schedule is 23:55; testDay is exactly that.
	g.SetClock(func() time.Time { return testDay })
	if err := g.Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := g.Get("alice", "2025-06-02"); err != nil {
		t.Errorf("journal should exist after the scheduled run: %v", err)
	}
}

func TestRun_SkipsOutsideTheWindow(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-time.Hour))

	g.SetClock(func() time.Time { return testDay.Add(-4 * time.Hour) })
	if err := g.Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := g.Get("alice", "2025-06-02"); !errors.Is(err, domain.ErrJournalNotFound) {
		t.Error("journal should not be generated outside the configured window")
	}
}

func TestRun_DisabledScheduleSkipsOwner(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-time.Hour))

	settings := domain.DefaultUserSettings()
	settings.AutoJournal.DailySchedule = false
	if _, err := g.UpdateSettings("alice", settings); err != nil {
		t.Fatalf("UpdateSettings() error: %v", err)
	}

	g.SetClock(func() time.Time { return testDay })
	if err := g.Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := g.Get("alice", "2025-06-02"); !errors.Is(err, domain.ErrJournalNotFound) {
		t.Error("disabled schedule must not generate")
	}
}

func TestRun_ManualBypassesGate(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-time.Hour))

	settings := domain.DefaultUserSettings()
	settings.AutoJournal.DailySchedule = false
	if _, err := g.UpdateSettings("alice", settings); err != nil {
		t.Fatalf("UpdateSettings() error: %v", err)
	}

	// Mid-afternoon, schedule disabled: a manual run still generates.
	g.SetClock(func() time.Time { return testDay.Add(-8 * time.Hour) })
	if err := g.Run(context.Background(), true); err != nil {
		t.Fatalf("Run(manual) error: %v", err)
	}
	if _, err := g.Get("alice", "2025-06-02"); err != nil {
		t.Errorf("manual run should generate: %v", err)
	}
}

func TestRun_CustomScheduleTime(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-20*time.Hour))

	settings := domain.DefaultUserSettings()
	settings.AutoJournal.ScheduleTime = "08:30"
	if _, err := g.UpdateSettings("alice", settings); err != nil {
		t.Fatalf("UpdateSettings() error: %v", err)
	}

	morning := time.Date(2025, 6, 2, 8, 31, 0, 0, time.Local) // within the ±1min window
	g.SetClock(func() time.Time { return morning })
	if err := g.Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := g.Get("alice", "2025-06-02"); err != nil {
		t.Errorf("custom schedule should generate at 08:31: %v", err)
	}
}

func TestRun_DaemonDefaultScheduleTime(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Ship release", testDay.Add(-20*time.Hour))

	// No stored settings: the daemon-level default replaces 23:55.
	g.SetDefaultScheduleTime("10:00")
	g.SetClock(func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local) })
	if err := g.Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := g.Get("alice", "2025-06-02"); err != nil {
		t.Errorf("daemon default time should gate generation: %v", err)
	}
}

func TestRun_OneOwnerFailureDoesNotBlockOthers(t *testing.T) {
	g, db := newTestGenerator(t)
	completeTask(t, db, "alice", "Broken owner", testDay.Add(-time.Hour))
	completeTask(t, db, "bob", "Healthy owner", testDay.Add(-time.Hour))

	g.SetClock(func() time.Time { return testDay })
	g.generate = func(ownerID string, day time.Time) error {
		if ownerID == "alice" {
			return errors.New("disk full")
		}
		return g.GenerateFor(ownerID, day)
	}

	// alice fails but the run finishes cleanly and bob's journal lands.
	if err := g.Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if _, err := g.Get("bob", "2025-06-02"); err != nil {
		t.Errorf("bob's journal missing after alice's failure: %v", err)
	}
	if _, err := g.Get("alice", "2025-06-02"); !errors.Is(err, domain.ErrJournalNotFound) {
		t.Errorf("Get(alice) = %v, want ErrJournalNotFound", err)
	}
}

func TestSetDefaultScheduleTime_IgnoresMalformed(t *testing.T) {
	g, _ := newTestGenerator(t)
	g.SetDefaultScheduleTime("whenever")

	settings, err := g.Settings("alice")
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	if settings.AutoJournal.ScheduleTime != "23:55" {
		t.Errorf("schedule time = %q, want the built-in default kept", settings.AutoJournal.ScheduleTime)
	}
}

// ─── Clock matching ─────────────────────────────────────────────────────────

func TestMatchesClock(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2025, 6, 2, h, m, 30, 0, time.Local)
	}
	tests := []struct {
		name  string
		now   time.Time
		clock string
		want  bool
	}{
		{"exact", at(23, 55), "23:55", true},
		{"one before", at(23, 54), "23:55", true},
		{"one after", at(23, 56), "23:55", true},
		{"two off", at(23, 57), "23:55", false},
		{"wraps past midnight", at(0, 0), "23:59", true},
		{"wraps before midnight", at(23, 59), "00:00", true},
		{"midday no wrap", at(12, 0), "23:55", false},
		{"malformed clock", at(23, 55), "quarter past", false},
	}
	for _, tt := range tests {
		if got := matchesClock(tt.now, tt.clock); got != tt.want {
			t.Errorf("%s: matchesClock(%v, %q) = %v, want %v", tt.name, tt.now, tt.clock, got, tt.want)
		}
	}
}

// ─── Settings ───────────────────────────────────────────────────────────────

func TestSettings_DefaultsWhenUnset(t *testing.T) {
	g, _ := newTestGenerator(t)
	settings, err := g.Settings("alice")
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	if !settings.AutoJournal.DailySchedule || settings.AutoJournal.ScheduleTime != "23:55" {
		t.Errorf("defaults = %+v, want dailySchedule=true scheduleTime=23:55", settings)
	}
}

func TestUpdateSettings_RejectsBadClock(t *testing.T) {
	g, _ := newTestGenerator(t)
	settings := domain.DefaultUserSettings()
	settings.AutoJournal.ScheduleTime = "25:99"
	if _, err := g.UpdateSettings("alice", settings); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("UpdateSettings(25:99) = %v, want ErrValidation", err)
	}
}

func TestUpdateSettings_Roundtrip(t *testing.T) {
	g, _ := newTestGenerator(t)
	settings := domain.DefaultUserSettings()
	settings.AutoJournal.DailySchedule = false
	settings.AutoJournal.ScheduleTime = "06:15"

	if _, err := g.UpdateSettings("alice", settings); err != nil {
		t.Fatalf("UpdateSettings() error: %v", err)
	}
	got, err := g.Settings("alice")
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	if got.AutoJournal.DailySchedule || got.AutoJournal.ScheduleTime != "06:15" {
		t.Errorf("settings = %+v, want stored values back", got)
	}
}
