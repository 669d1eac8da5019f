package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/portero-acs/portero/internal/portero/store"
)

// KeyfobStore is an in-memory KeyfobStore for tests and dev environments.
type KeyfobStore struct {
	mu      sync.Mutex
	keyfobs []store.Keyfob

	// Err, when non-nil, is returned by every lookup.  Tests use it to
	// simulate persistence faults.
	Err error
}

func NewKeyfobStore(keyfobs ...store.Keyfob) *KeyfobStore {
	return &KeyfobStore{keyfobs: keyfobs}
}

func (s *KeyfobStore) FindByUID(_ context.Context, uid string) (*store.Keyfob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for i := range s.keyfobs {
		if strings.EqualFold(s.keyfobs[i].UID, uid) {
			k := s.keyfobs[i]
			return &k, nil
		}
	}
	return nil, nil
}

// SetErr makes subsequent lookups fail with err (nil clears).
func (s *KeyfobStore) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
