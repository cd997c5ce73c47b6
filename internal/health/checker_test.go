package health

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct{ err error }

func (f *fakeStore) Ping() error { return f.err }

type fakeScheduler struct{ running bool }

func (f *fakeScheduler) IsRunning() bool { return f.running }

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(&fakeStore{}, t.TempDir(), &fakeScheduler{running: true})
	c.runAll(context.Background())

	if !c.IsHealthy() {
		t.Errorf("IsHealthy() = false, statuses %+v", c.Statuses())
	}
	if len(c.Statuses()) != 3 {
		t.Errorf("probes = %d, want sqlite, data_dir and scheduler", len(c.Statuses()))
	}
}

func TestChecker_ReportsStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	c := NewChecker(store, t.TempDir(), &fakeScheduler{running: true})
	c.runAll(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() = true with a failing store")
	}
	for _, s := range c.Statuses() {
		if s.Name == "sqlite" {
			if s.Healthy || s.Error != "database is locked" {
				t.Errorf("sqlite status = %+v", s)
			}
		}
	}
}

func TestChecker_ReportsStoppedScheduler(t *testing.T) {
	c := NewChecker(&fakeStore{}, t.TempDir(), &fakeScheduler{})
	c.runAll(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() = true with a stopped scheduler")
	}
}

func TestChecker_NilSchedulerSkipsProbe(t *testing.T) {
	c := NewChecker(&fakeStore{}, t.TempDir(), nil)
	c.runAll(context.Background())

	if len(c.Statuses()) != 2 {
		t.Errorf("probes = %d, want 2 without a scheduler", len(c.Statuses()))
	}
	if !c.IsHealthy() {
		t.Errorf("IsHealthy() = false, statuses %+v", c.Statuses())
	}
}

func TestChecker_MissingDataDir(t *testing.T) {
	c := NewChecker(&fakeStore{}, "/nonexistent/traction-data", nil)
	c.runAll(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() = true with a missing data dir")
	}
}
