// Package exclusion tracks, per appointment, the caregivers who must not be
// re-offered that appointment. Entries are time-boxed so a stale set can never
// permanently block re-matching.
package exclusion

import (
	"context"
	"time"
)

// DefaultTTL bounds the lifetime of an appointment's exclusion set.
const DefaultTTL = 5 * time.Minute

// Store is the shared exclusion set reachable by every service instance.
// Implementations must make AddDecline idempotent so caller-level retries are
// safe.
type Store interface {
	// AddDecline records that the caregiver declined the appointment. The
	// TTL is set when the appointment's set is first created and is not
	// extended by later inserts.
	AddDecline(ctx context.Context, appointmentID, caregiverID string) error

	// ListExcluded returns the caregiver ids currently excluded for the
	// appointment.
	ListExcluded(ctx context.Context, appointmentID string) (map[string]struct{}, error)

	// Clear removes the appointment's exclusion set. Called on terminal
	// transitions so store growth does not rely solely on the TTL.
	Clear(ctx context.Context, appointmentID string) error
}
