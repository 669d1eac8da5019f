package memory

import (
	"context"
	"sync"
	"time"

	"github.com/portero-acs/portero/internal/portero/store"
)

// SystemEventStore is an in-memory SystemEventStore for tests and dev.
type SystemEventStore struct {
	mu      sync.Mutex
	records []store.SystemEventRecord
}

func NewSystemEventStore() *SystemEventStore {
	return &SystemEventStore{}
}

func (s *SystemEventStore) Record(_ context.Context, rec store.SystemEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *SystemEventStore) List(_ context.Context, limit int) ([]store.SystemEventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]store.SystemEventRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Records returns a copy of all recorded events.  Test-only helper.
func (s *SystemEventStore) Records() []store.SystemEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.SystemEventRecord, len(s.records))
	copy(out, s.records)
	return out
}
