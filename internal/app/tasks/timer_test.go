package tasks

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/traction-app/traction/internal/domain"
)

// ─── Start ──────────────────────────────────────────────────────────────────

func TestStartTimer_OpensSession(t *testing.T) {
	s, db := newTestService(t)
	clock := newTestClock()
	s.SetClock(clock.Now)
	task := mustCreate(t, s, "ana", "deep work", domain.StatusInProgress)

	res, err := s.StartTimer("ana", task.ID, "morning block")
	if err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}
	if !res.Task.IsTimerActive || res.Task.TimerStartedAt == nil {
		t.Error("task should be running after start")
	}
	if len(res.Interrupted) != 0 {
		t.Errorf("Interrupted = %v, want empty", res.Interrupted)
	}

	open, err := db.OpenEntry(task.ID)
	if err != nil {
		t.Fatalf("OpenEntry() error: %v", err)
	}
	if open == nil {
		t.Fatal("expected an open time entry")
	}
	if open.Description != "morning block" {
		t.Errorf("Description = %q", open.Description)
	}
}

func TestStartTimer_RejectsDoneAndArchived(t *testing.T) {
	s, _ := newTestService(t)
	for _, status := range []domain.Status{domain.StatusDone, domain.StatusArchived} {
		task := mustCreate(t, s, "ana", "finished "+string(status), status)
		if _, err := s.StartTimer("ana", task.ID, ""); !errors.Is(err, domain.ErrTaskNotStartable) {
			t.Errorf("StartTimer on %s = %v, want ErrTaskNotStartable", status, err)
		}
	}
}

func TestStartTimer_PromotesIdeaToInProgress(t *testing.T) {
	s, db := newTestService(t)
	task := mustCreate(t, s, "ana", "spark", domain.StatusIdea)

	res, err := s.StartTimer("ana", task.ID, "")
	if err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}
	if res.Task.Status != domain.StatusInProgress {
		t.Errorf("Status = %s, want IN_PROGRESS", res.Task.Status)
	}

	entries, _ := db.ListHistory(task.ID)
	last := entries[len(entries)-1]
	if last.FromStatus != domain.StatusIdea || last.ToStatus != domain.StatusInProgress {
		t.Errorf("audit = %s→%s, want IDEA→IN_PROGRESS", last.FromStatus, last.ToStatus)
	}
}

func TestStartTimer_AlreadyRunningIsNoOp(t *testing.T) {
	s, _ := newTestService(t)
	task := mustCreate(t, s, "ana", "running", domain.StatusInProgress)

	if _, err := s.StartTimer("ana", task.ID, ""); err != nil {
		t.Fatalf("first StartTimer() error: %v", err)
	}
	res, err := s.StartTimer("ana", task.ID, "")
	if err != nil {
		t.Fatalf("second StartTimer() error: %v", err)
	}
	if !res.Task.IsTimerActive {
		t.Error("timer should stay running")
	}
	if len(res.Interrupted) != 0 {
		t.Errorf("Interrupted = %v, want empty", res.Interrupted)
	}
}

// ─── Steal ──────────────────────────────────────────────────────────────────

func TestStartTimer_StealsFromOtherTask(t *testing.T) {
	s, db := newTestService(t)
	clock := newTestClock()
	s.SetClock(clock.Now)

	a := mustCreate(t, s, "ana", "task A", domain.StatusInProgress)
	b := mustCreate(t, s, "ana", "task B", domain.StatusInProgress)

	if _, err := s.StartTimer("ana", a.ID, ""); err != nil {
		t.Fatalf("StartTimer(A) error: %v", err)
	}
	clock.Advance(60 * time.Second)

	res, err := s.StartTimer("ana", b.ID, "")
	if err != nil {
		t.Fatalf("StartTimer(B) error: %v", err)
	}

	if len(res.Interrupted) != 1 || res.Interrupted[0].ID != a.ID {
		t.Fatalf("Interrupted = %v, want [A]", res.Interrupted)
	}

	gotA, _ := s.Get("ana", a.ID)
	if gotA.IsTimerActive {
		t.Error("A should be idle after steal")
	}
	if gotA.TotalTimeSpent != 60 {
		t.Errorf("A.TotalTimeSpent = %d, want 60", gotA.TotalTimeSpent)
	}
	if open, _ := db.OpenEntry(a.ID); open != nil {
		t.Error("A should have no open entry after steal")
	}

	gotB, _ := s.Get("ana", b.ID)
	if !gotB.IsTimerActive {
		t.Error("B should be running")
	}

	// At most one running timer per owner.
	running, _ := db.RunningTasks("ana")
	if len(running) != 1 || running[0].ID != b.ID {
		t.Errorf("running tasks = %v, want [B]", running)
	}
}

func TestStartTimer_DoesNotStealAcrossOwners(t *testing.T) {
	s, db := newTestService(t)
	a := mustCreate(t, s, "ana", "ana's work", domain.StatusInProgress)
	b := mustCreate(t, s, "bob", "bob's work", domain.StatusInProgress)

	if _, err := s.StartTimer("ana", a.ID, ""); err != nil {
		t.Fatalf("StartTimer(ana) error: %v", err)
	}
	res, err := s.StartTimer("bob", b.ID, "")
	if err != nil {
		t.Fatalf("StartTimer(bob) error: %v", err)
	}
	if len(res.Interrupted) != 0 {
		t.Errorf("Interrupted = %v, want empty (different owner)", res.Interrupted)
	}

	running, _ := db.RunningTasks("ana")
	if len(running) != 1 {
		t.Errorf("ana running tasks = %d, want 1", len(running))
	}
}

func TestStartTimer_ConcurrentStartsKeepOneTimer(t *testing.T) {
	s, db := newTestService(t)
	a := mustCreate(t, s, "ana", "tab one", domain.StatusInProgress)
	b := mustCreate(t, s, "ana", "tab two", domain.StatusInProgress)

	var wg sync.WaitGroup
	for _, id := range []string{a.ID, b.ID, a.ID, b.ID} {
		wg.Add(1)
		go func(taskID string) {
			defer wg.Done()
			_, _ = s.StartTimer("ana", taskID, "")
		}(id)
	}
	wg.Wait()

	running, err := db.RunningTasks("ana")
	if err != nil {
		t.Fatalf("RunningTasks() error: %v", err)
	}
	if len(running) != 1 {
		t.Errorf("running timers = %d, want exactly 1", len(running))
	}
}

// ─── Pause ──────────────────────────────────────────────────────────────────

func TestPauseTimer_CreditsSession(t *testing.T) {
	s, db := newTestService(t)
	clock := newTestClock()
	s.SetClock(clock.Now)
	task := mustCreate(t, s, "ana", "pausable", domain.StatusInProgress)

	if _, err := s.StartTimer("ana", task.ID, ""); err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}
	clock.Advance(300 * time.Second)

	res, err := s.PauseTimer("ana", task.ID, "lunch")
	if err != nil {
		t.Fatalf("PauseTimer() error: %v", err)
	}
	if res.SessionDuration != 300 {
		t.Errorf("SessionDuration = %d, want 300", res.SessionDuration)
	}
	if res.Task.TotalTimeSpent != 300 {
		t.Errorf("TotalTimeSpent = %d, want 300", res.Task.TotalTimeSpent)
	}
	if res.Task.IsTimerActive || res.Task.TimerStartedAt != nil {
		t.Error("task should be idle after pause")
	}

	entries, _ := db.ListTimeEntries(task.ID)
	if len(entries) != 1 {
		t.Fatalf("time entries = %d, want 1", len(entries))
	}
	if entries[0].Duration != 300 || entries[0].EndTime == nil {
		t.Errorf("closed entry = %+v", entries[0])
	}
}

func TestPauseTimer_IdleIsDomainError(t *testing.T) {
	s, _ := newTestService(t)
	task := mustCreate(t, s, "ana", "idle", domain.StatusInProgress)

	if _, err := s.PauseTimer("ana", task.ID, ""); !errors.Is(err, domain.ErrTimerNotRunning) {
		t.Errorf("PauseTimer on idle = %v, want ErrTimerNotRunning", err)
	}
}

func TestTimer_DurationConservation(t *testing.T) {
	s, db := newTestService(t)
	clock := newTestClock()
	s.SetClock(clock.Now)
	task := mustCreate(t, s, "ana", "accumulator", domain.StatusInProgress)

	for _, seconds := range []int{30, 45, 120} {
		if _, err := s.StartTimer("ana", task.ID, ""); err != nil {
			t.Fatalf("StartTimer() error: %v", err)
		}
		clock.Advance(time.Duration(seconds) * time.Second)
		if _, err := s.PauseTimer("ana", task.ID, ""); err != nil {
			t.Fatalf("PauseTimer() error: %v", err)
		}
	}

	got, _ := s.Get("ana", task.ID)
	sum, err := db.SumClosedDurations(task.ID)
	if err != nil {
		t.Fatalf("SumClosedDurations() error: %v", err)
	}
	if got.TotalTimeSpent != 195 {
		t.Errorf("TotalTimeSpent = %d, want 195", got.TotalTimeSpent)
	}
	if sum != got.TotalTimeSpent {
		t.Errorf("closed durations sum = %d, TotalTimeSpent = %d; must match", sum, got.TotalTimeSpent)
	}
}

func TestTimer_NegativeElapsedClampedToZero(t *testing.T) {
	s, _ := newTestService(t)
	clock := newTestClock()
	s.SetClock(clock.Now)
	task := mustCreate(t, s, "ana", "clock skew", domain.StatusInProgress)

	if _, err := s.StartTimer("ana", task.ID, ""); err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}
	clock.Advance(-time.Hour) // clock adjusted backwards

	res, err := s.PauseTimer("ana", task.ID, "")
	if err != nil {
		t.Fatalf("PauseTimer() error: %v", err)
	}
	if res.SessionDuration != 0 {
		t.Errorf("SessionDuration = %d, want 0 (clamped)", res.SessionDuration)
	}
	if res.Task.TotalTimeSpent != 0 {
		t.Errorf("TotalTimeSpent = %d, want 0", res.Task.TotalTimeSpent)
	}
}

// ─── Stop ───────────────────────────────────────────────────────────────────

func TestStopTimer_PausesAndCompletes(t *testing.T) {
	s, db := newTestService(t)
	clock := newTestClock()
	s.SetClock(clock.Now)
	task := mustCreate(t, s, "ana", "almost there", domain.StatusInProgress)

	if _, err := s.StartTimer("ana", task.ID, ""); err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}
	clock.Advance(125 * time.Second)

	res, err := s.StopTimer("ana", task.ID, "")
	if err != nil {
		t.Fatalf("StopTimer() error: %v", err)
	}
	if res.SessionDuration != 125 {
		t.Errorf("SessionDuration = %d, want 125", res.SessionDuration)
	}
	if res.Task.TotalTimeSpent != 125 {
		t.Errorf("TotalTimeSpent = %d, want 125", res.Task.TotalTimeSpent)
	}
	if res.Task.Status != domain.StatusDone {
		t.Errorf("Status = %s, want DONE", res.Task.Status)
	}
	if res.Task.CompletedAt == nil || !res.Task.CompletedAt.Equal(clock.Now()) {
		t.Errorf("CompletedAt = %v, want %v", res.Task.CompletedAt, clock.Now())
	}
	if res.Task.CompletedCount != 1 {
		t.Errorf("CompletedCount = %d, want 1", res.Task.CompletedCount)
	}

	// Exactly one IN_PROGRESS→DONE audit entry, and the session credited once.
	entries, _ := db.ListHistory(task.ID)
	var doneTransitions int
	for _, e := range entries {
		if e.FromStatus == domain.StatusInProgress && e.ToStatus == domain.StatusDone {
			doneTransitions++
		}
	}
	if doneTransitions != 1 {
		t.Errorf("IN_PROGRESS→DONE entries = %d, want 1", doneTransitions)
	}
	sum, _ := db.SumClosedDurations(task.ID)
	if sum != 125 {
		t.Errorf("closed durations sum = %d, want 125 (no double credit)", sum)
	}
}

func TestStopTimer_IdleIsDomainError(t *testing.T) {
	s, _ := newTestService(t)
	task := mustCreate(t, s, "ana", "idle", domain.StatusInProgress)

	if _, err := s.StopTimer("ana", task.ID, ""); !errors.Is(err, domain.ErrTimerNotRunning) {
		t.Errorf("StopTimer on idle = %v, want ErrTimerNotRunning", err)
	}
}
