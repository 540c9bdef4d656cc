package exclusion

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	members   map[string]struct{}
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and single-node runs. The
// clock is injectable so TTL behaviour can be exercised deterministically.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*entry
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore creates a MemoryStore with the given TTL. A zero ttl falls
// back to DefaultTTL and a nil clock to time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{data: map[string]*entry{}, ttl: ttl, now: now}
}

func (s *MemoryStore) AddDecline(_ context.Context, appointmentID, caregiverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(appointmentID)
	if e == nil {
		e = &entry{members: map[string]struct{}{}, expiresAt: s.now().Add(s.ttl)}
		s.data[appointmentID] = e
	}
	e.members[caregiverID] = struct{}{}
	return nil
}

func (s *MemoryStore) ListExcluded(_ context.Context, appointmentID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]struct{}{}
	if e := s.live(appointmentID); e != nil {
		for id := range e.members {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, appointmentID string) error {
	s.mu.Lock()
	delete(s.data, appointmentID)
	s.mu.Unlock()
	return nil
}

// live returns the entry for the appointment, dropping it first if expired.
// Callers must hold the mutex.
func (s *MemoryStore) live(appointmentID string) *entry {
	e, ok := s.data[appointmentID]
	if !ok {
		return nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.data, appointmentID)
		return nil
	}
	return e
}
