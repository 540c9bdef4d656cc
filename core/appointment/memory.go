package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/model"
)

// MemoryStore is an in-process Store for tests and single-node runs. The
// compare-and-swap in UpdateStatus mirrors the conditional UPDATE performed
// by the Postgres store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]model.Appointment
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.Appointment{}}
}

// Put inserts or replaces an appointment.
func (s *MemoryStore) Put(a model.Appointment) {
	s.mu.Lock()
	s.data[a.ID] = a
	s.mu.Unlock()
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data[id]
	if !ok {
		return nil, fault.New(fault.KindNotFound, "appointment %s not found", id)
	}
	return &a, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, from, to model.Status, fields Fields) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data[id]
	if !ok {
		return nil, fault.New(fault.KindNotFound, "appointment %s not found", id)
	}
	if a.Status != from {
		return nil, fault.New(fault.KindConflict, "appointment %s is %s, expected %s", id, a.Status, from)
	}
	a.Status = to
	if fields.CaregiverID != nil {
		a.CaregiverID = *fields.CaregiverID
	}
	if fields.CancellationReason != nil {
		a.CancellationReason = *fields.CancellationReason
	}
	a.UpdatedAt = time.Now()
	s.data[id] = a
	return &a, nil
}

func (s *MemoryStore) FindBusyCaregiverIDs(_ context.Context, statuses []model.Status) (map[string]struct{}, error) {
	busy := map[model.Status]bool{}
	for _, st := range statuses {
		busy[st] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]struct{}{}
	for _, a := range s.data {
		if busy[a.Status] && a.CaregiverID != "" {
			out[a.CaregiverID] = struct{}{}
		}
	}
	return out, nil
}
