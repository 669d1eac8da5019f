package memory

import (
	"context"
	"sync"
	"time"

	"github.com/portero-acs/portero/internal/portero/store"
)

// AccessLogStore is an in-memory append-only log of access decisions.
// It is intended for use in tests and dev environments.
type AccessLogStore struct {
	mu      sync.Mutex
	records []store.AccessLogRecord
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) Record(_ context.Context, rec store.AccessLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *AccessLogStore) List(_ context.Context, limit int) ([]store.AccessLogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]store.AccessLogRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	var deleted int64
	for _, r := range s.records {
		if r.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}

// Records returns a copy of all recorded entries in arrival order.
// Test-only helper.
func (s *AccessLogStore) Records() []store.AccessLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessLogRecord, len(s.records))
	copy(out, s.records)
	return out
}
