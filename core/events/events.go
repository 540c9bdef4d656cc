// Package events defines the domain events published on the internal bus.
package events

import "time"

// RedispatchRequested signals that an appointment returned to PENDING and the
// booking orchestrator should re-run the match for it.
type RedispatchRequested struct {
	AppointmentID string
	CaregiverID   string
	Time          time.Time
}

// AppointmentTransitioned records a successful state-machine transition.
type AppointmentTransitioned struct {
	AppointmentID string
	Action        string
	From          string
	To            string
	Time          time.Time
}

// MatchCompleted records the outcome of a dispatch request.
type MatchCompleted struct {
	AppointmentID string
	Candidates    int
	Returned      int
	Time          time.Time
}
