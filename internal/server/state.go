package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// StateStore issues single-use OAuth state values that expire after a TTL.
type StateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	states map[string]time.Time
	now    func() time.Time
}

// NewStateStore creates a store whose states expire after ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{
		ttl:    ttl,
		states: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Issue returns a new random state.
func (s *StateStore) Issue() string {
	state := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	s.states[state] = s.now().Add(s.ttl)
	return state
}

// Consume reports whether state was issued and has not expired, and
// invalidates it.
func (s *StateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return s.now().Before(expiry)
}

// Len returns the number of outstanding states.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *StateStore) pruneLocked() {
	now := s.now()
	for state, expiry := range s.states {
		if !now.Before(expiry) {
			delete(s.states, state)
		}
	}
}
