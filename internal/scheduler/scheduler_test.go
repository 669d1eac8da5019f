package scheduler

import (
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScheduler() *Scheduler {
	return New(log.New(io.Discard, "", 0))
}

func TestAddInterval_ReplacesExisting(t *testing.T) {
	s := newTestScheduler()

	if err := s.AddInterval("tick", time.Hour, func() {}); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}
	if err := s.AddInterval("tick", time.Minute, func() {}); err != nil {
		t.Fatalf("AddInterval replace: %v", err)
	}

	if got := s.EntryCount(); got != 1 {
		t.Fatalf("EntryCount = %d after re-adding same name, want 1", got)
	}
	if !s.Has("tick") {
		t.Fatal("Has(tick) = false")
	}
}

func TestRemove(t *testing.T) {
	s := newTestScheduler()

	if err := s.AddInterval("tick", time.Hour, func() {}); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}
	s.Remove("tick")
	s.Remove("tick") // absent name is a no-op

	if s.Has("tick") {
		t.Fatal("Has(tick) = true after Remove")
	}
	if got := s.EntryCount(); got != 0 {
		t.Fatalf("EntryCount = %d after Remove, want 0", got)
	}
}

func TestAddCron_BadSpec(t *testing.T) {
	s := newTestScheduler()
	if err := s.AddCron("broken", "not a cron spec", func() {}); err == nil {
		t.Fatal("AddCron accepted a bad spec")
	}
	if s.Has("broken") {
		t.Fatal("bad spec left a registered job behind")
	}
}

func TestIntervalJobRuns(t *testing.T) {
	s := newTestScheduler()

	var runs atomic.Int64
	if err := s.AddInterval("counter", 10*time.Millisecond, func() { runs.Add(1) }); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}

	s.Start()
	defer func() { <-s.Stop().Done() }()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Fatal("interval job never ran")
	}
}

func TestNames(t *testing.T) {
	s := newTestScheduler()
	_ = s.AddInterval("a", time.Hour, func() {})
	_ = s.AddInterval("b", time.Hour, func() {})

	names := s.Names()
	if len(names) != 2 {
		t.Fatalf("Names = %v, want 2 entries", names)
	}
}
