package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/link-bedside-nurses/dispatch/core/events"
	"github.com/link-bedside-nurses/dispatch/core/exclusion"
	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/model"
	"github.com/link-bedside-nurses/dispatch/infra/logger"
	"github.com/link-bedside-nurses/dispatch/infra/mqtt"
	"github.com/link-bedside-nurses/dispatch/internal/eventbus"
)

type fixture struct {
	svc        *Service
	store      *MemoryStore
	exclusions *exclusion.MemoryStore
	redispatch *mqtt.MockRedispatcher
	bus        eventbus.EventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemoryStore()
	excl := exclusion.NewMemoryStore(time.Minute, nil)
	red := mqtt.NewMockRedispatcher()
	bus := eventbus.New()
	svc, err := NewService(store, excl, red, bus, logger.NopLogger{}, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, store: store, exclusions: excl, redispatch: red, bus: bus}
}

func pending(id string) model.Appointment {
	return model.Appointment{ID: id, PatientID: "p1", Status: model.StatusPending}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(nil, exclusion.NewMemoryStore(0, nil), nil, nil, logger.NopLogger{}, nil)
	assert.Error(t, err)
	_, err = NewService(NewMemoryStore(), nil, nil, nil, logger.NopLogger{}, nil)
	assert.Error(t, err)
}

func TestService_AssignFromPending(t *testing.T) {
	f := newFixture(t)
	f.store.Put(pending("a1"))

	appt, err := f.svc.Assign(context.Background(), "a1", "c1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, appt.Status)
	assert.Equal(t, "c1", appt.CaregiverID)
}

func TestService_AssignIllegalElsewhere(t *testing.T) {
	f := newFixture(t)
	f.store.Put(model.Appointment{ID: "a1", Status: model.StatusInProgress})

	_, err := f.svc.Assign(context.Background(), "a1", "c1")
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))
}

func TestService_AssignUnknownAppointment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Assign(context.Background(), "missing", "c1")
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

func TestService_AssignRequiresCaregiver(t *testing.T) {
	f := newFixture(t)
	f.store.Put(pending("a1"))
	_, err := f.svc.Assign(context.Background(), "a1", "")
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))
}

func TestService_ConcurrentAssignExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.store.Put(pending("a1"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, caregiver := range []string{"c1", "c2"} {
		wg.Add(1)
		go func(i int, cg string) {
			defer wg.Done()
			_, errs[i] = f.svc.Assign(context.Background(), "a1", cg)
		}(i, caregiver)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, fault.IsConflict(err))
		}
	}
	assert.Equal(t, 1, winners)

	appt, err := f.store.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, appt.Status)
	assert.Contains(t, []string{"c1", "c2"}, appt.CaregiverID)
}

func TestService_DeclineReturnsToPendingAndExcludes(t *testing.T) {
	f := newFixture(t)
	f.store.Put(model.Appointment{ID: "a1", Status: model.StatusAssigned, CaregiverID: "c1"})
	sub := f.bus.Subscribe()

	appt, err := f.svc.Decline(context.Background(), "a1", "c1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, appt.Status)
	assert.Empty(t, appt.CaregiverID)

	excluded, err := f.exclusions.ListExcluded(context.Background(), "a1")
	require.NoError(t, err)
	assert.Contains(t, excluded, "c1")

	assert.Equal(t, []string{"a1"}, f.redispatch.Requested())

	var sawRedispatch bool
	for done := false; !done; {
		select {
		case ev := <-sub:
			if _, ok := ev.(events.RedispatchRequested); ok {
				sawRedispatch = true
				done = true
			}
		default:
			done = true
		}
	}
	assert.True(t, sawRedispatch)
}

func TestService_DeclineFromPending(t *testing.T) {
	f := newFixture(t)
	f.store.Put(pending("a1"))

	appt, err := f.svc.Decline(context.Background(), "a1", "c9")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, appt.Status)

	excluded, err := f.exclusions.ListExcluded(context.Background(), "a1")
	require.NoError(t, err)
	assert.Contains(t, excluded, "c9")
}

func TestService_DeclineTerminalConflicts(t *testing.T) {
	f := newFixture(t)
	f.store.Put(model.Appointment{ID: "a1", Status: model.StatusCompleted})

	_, err := f.svc.Decline(context.Background(), "a1", "c1")
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))
}

func TestService_LostRedispatchNotificationIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.store.Put(model.Appointment{ID: "a1", Status: model.StatusAssigned, CaregiverID: "c1"})
	f.redispatch.FailIDs["a1"] = true

	appt, err := f.svc.Decline(context.Background(), "a1", "c1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, appt.Status)
}

func TestService_CancelRecordsReasonAndClearsExclusions(t *testing.T) {
	f := newFixture(t)
	f.store.Put(model.Appointment{ID: "a1", Status: model.StatusAssigned, CaregiverID: "c1"})
	require.NoError(t, f.exclusions.AddDecline(context.Background(), "a1", "c2"))

	appt, err := f.svc.Cancel(context.Background(), "a1", "patient travelling")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, appt.Status)
	assert.Equal(t, "patient travelling", appt.CancellationReason)

	excluded, err := f.exclusions.ListExcluded(context.Background(), "a1")
	require.NoError(t, err)
	assert.Empty(t, excluded)
}

func TestService_CancelTerminalConflicts(t *testing.T) {
	f := newFixture(t)
	f.store.Put(model.Appointment{ID: "a1", Status: model.StatusCancelled})

	_, err := f.svc.Cancel(context.Background(), "a1", "again")
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))
}

func TestService_CompleteFromInProgress(t *testing.T) {
	f := newFixture(t)
	f.store.Put(model.Appointment{ID: "a1", Status: model.StatusInProgress, CaregiverID: "c1"})
	require.NoError(t, f.exclusions.AddDecline(context.Background(), "a1", "c2"))

	appt, err := f.svc.Complete(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, appt.Status)

	excluded, err := f.exclusions.ListExcluded(context.Background(), "a1")
	require.NoError(t, err)
	assert.Empty(t, excluded, "terminal transition clears the exclusion set")
}

func TestService_CompleteFromPendingConflicts(t *testing.T) {
	f := newFixture(t)
	f.store.Put(pending("a1"))

	_, err := f.svc.Complete(context.Background(), "a1")
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))
}

func TestService_ApplyDispatchesActions(t *testing.T) {
	f := newFixture(t)
	f.store.Put(pending("a1"))

	appt, err := f.svc.Apply(context.Background(), "a1", ActionAssign, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, appt.Status)

	appt, err = f.svc.Apply(context.Background(), "a1", ActionConfirm, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, appt.Status)

	appt, err = f.svc.Apply(context.Background(), "a1", ActionComplete, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, appt.Status)
}
