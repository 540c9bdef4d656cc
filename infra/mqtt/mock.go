package mqtt

import (
	"context"
	"fmt"
	"sync"
)

// MockRedispatcher records redispatch requests for tests.
type MockRedispatcher struct {
	mu       sync.Mutex
	Requests []string
	FailIDs  map[string]bool
}

// NewMockRedispatcher creates a new MockRedispatcher.
func NewMockRedispatcher() *MockRedispatcher {
	return &MockRedispatcher{FailIDs: make(map[string]bool)}
}

// RequestRedispatch records the request or returns an error if configured to
// fail for the appointment.
func (m *MockRedispatcher) RequestRedispatch(_ context.Context, appointmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[appointmentID] {
		return fmt.Errorf("publish failed")
	}
	m.Requests = append(m.Requests, appointmentID)
	return nil
}

// Requested returns the recorded appointment ids.
func (m *MockRedispatcher) Requested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Requests...)
}
