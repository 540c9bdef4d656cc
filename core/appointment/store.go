package appointment

import (
	"context"

	"github.com/link-bedside-nurses/dispatch/core/model"
)

// Fields carries the mutations applied atomically with a status change. A nil
// pointer leaves the column untouched; a pointer to the empty string clears it.
type Fields struct {
	CaregiverID        *string
	CancellationReason *string
}

// Store is the appointment persistence collaborator. UpdateStatus is the
// optimistic-concurrency primitive: the write succeeds only if the stored
// status still equals from, otherwise it fails with a conflict error and no
// partial mutation. It must not rely on process-wide locking since the
// service runs as multiple horizontally-scaled instances.
type Store interface {
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, from, to model.Status, fields Fields) (*model.Appointment, error)
	FindBusyCaregiverIDs(ctx context.Context, statuses []model.Status) (map[string]struct{}, error)
}
