// Package directory defines the read-only view of the caregiver directory
// consumed by the matching engine.
package directory

import (
	"context"

	"github.com/link-bedside-nurses/dispatch/core/model"
)

// Candidate is a caregiver geographically near a requested point, prior to
// eligibility filtering.
type Candidate struct {
	Caregiver      model.Caregiver `json:"caregiver"`
	DistanceMeters float64         `json:"distance_meters"`
}

// Directory finds caregivers near a point. Results are sorted by ascending
// great-circle distance, the radius is inclusive, and only deleted records
// are pre-filtered.
type Directory interface {
	FindNear(ctx context.Context, point model.GeoPoint, radiusMeters float64) ([]Candidate, error)
}
