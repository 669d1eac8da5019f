// Package scheduler wraps robfig/cron with named, replaceable jobs.
// Re-adding a name replaces the previous entry, so re-applying the same
// job configuration is idempotent.  Every job runs under
// SkipIfStillRunning: at most one instance of a job executes at a time,
// which keeps long door openings from stacking engine ticks.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	cron "github.com/robfig/cron/v3"
)

type Scheduler struct {
	c      *cron.Cron
	logger *log.Logger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

func New(logger *log.Logger) *Scheduler {
	cl := cron.PrintfLogger(logger)
	return &Scheduler{
		c: cron.New(
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		jobs:   make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop halts scheduling and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context { return s.c.Stop() }

// AddInterval registers (or replaces) a fixed-interval job.
func (s *Scheduler) AddInterval(name string, every time.Duration, fn func()) error {
	return s.add(name, fmt.Sprintf("@every %s", every), fn)
}

// AddCron registers (or replaces) a cron-style job.
func (s *Scheduler) AddCron(name, spec string, fn func()) error {
	return s.add(name, spec, fn)
}

func (s *Scheduler) add(name, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[name]; ok {
		s.c.Remove(old)
		delete(s.jobs, name)
	}

	id, err := s.c.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("add job %q (%s): %w", name, spec, err)
	}
	s.jobs[name] = id
	s.logger.Printf("scheduler: job %q registered (%s)", name, spec)
	return nil
}

// Remove deletes the named job.  Removing an absent name is a no-op.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.jobs[name]; ok {
		s.c.Remove(id)
		delete(s.jobs, name)
		s.logger.Printf("scheduler: job %q removed", name)
	}
}

// Has reports whether a job with the given name is registered.
func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[name]
	return ok
}

// Names returns the registered job names.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		out = append(out, n)
	}
	return out
}

// EntryCount reports how many entries the underlying cron holds.
// Test-only helper for the replace semantics.
func (s *Scheduler) EntryCount() int {
	return len(s.c.Entries())
}
