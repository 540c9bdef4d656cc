package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status int

const (
	StatusPending Status = iota
	StatusAssigned
	StatusInProgress
	StatusCompleted
	StatusCancelled
)

// String returns the persisted representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusAssigned:
		return "ASSIGNED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "unknown"
	}
}

// ParseStatus converts a persisted status string back to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "PENDING":
		return StatusPending, nil
	case "ASSIGNED":
		return StatusAssigned, nil
	case "IN_PROGRESS":
		return StatusInProgress, nil
	case "COMPLETED":
		return StatusCompleted, nil
	case "CANCELLED":
		return StatusCancelled, nil
	default:
		return 0, fmt.Errorf("unknown appointment status %q", s)
	}
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment is a booked home-visit request linking a patient to, once
// assigned, a caregiver. CaregiverID is empty until assignment.
type Appointment struct {
	ID                 string    `json:"id"`
	PatientID          string    `json:"patient_id"`
	CaregiverID        string    `json:"caregiver_id,omitempty"`
	Status             Status    `json:"status"`
	Location           GeoPoint  `json:"location"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
