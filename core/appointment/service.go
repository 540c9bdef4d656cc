package appointment

import (
	"context"
	"time"

	"github.com/link-bedside-nurses/dispatch/core/events"
	"github.com/link-bedside-nurses/dispatch/core/exclusion"
	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/logger"
	"github.com/link-bedside-nurses/dispatch/core/metrics"
	"github.com/link-bedside-nurses/dispatch/core/model"
	"github.com/link-bedside-nurses/dispatch/internal/eventbus"
)

// Redispatcher is notified when a declined appointment returns to PENDING and
// needs a new match. The booking orchestrator consuming the notification is
// outside this engine.
type Redispatcher interface {
	RequestRedispatch(ctx context.Context, appointmentID string) error
}

// NopRedispatcher discards redispatch notifications.
type NopRedispatcher struct{}

func (NopRedispatcher) RequestRedispatch(context.Context, string) error { return nil }

// Service applies lifecycle transitions to appointments. Each transition is a
// single optimistic compare-and-swap against the store, so concurrent writers
// on the same appointment are linearized without process-wide locks.
type Service struct {
	store      Store
	exclusions exclusion.Store
	redispatch Redispatcher
	bus        eventbus.EventBus
	log        logger.Logger
	metrics    metrics.Sink
	now        func() time.Time
}

// NewService creates a Service. Store, exclusion store and logger are
// mandatory; bus, redispatcher and metrics sink may be nil.
func NewService(store Store, excl exclusion.Store, redispatch Redispatcher, bus eventbus.EventBus, log logger.Logger, sink metrics.Sink) (*Service, error) {
	if store == nil || excl == nil || log == nil {
		return nil, fault.New(fault.KindValidation, "nil parameter provided to NewService")
	}
	if redispatch == nil {
		redispatch = NopRedispatcher{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Service{
		store:      store,
		exclusions: excl,
		redispatch: redispatch,
		bus:        bus,
		log:        log,
		metrics:    sink,
		now:        time.Now,
	}, nil
}

// SetClock overrides the time source used for event timestamps.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the appointment by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// Apply dispatches an action coming from the API boundary to the matching
// transition. CaregiverID is required for assign and decline; reason is only
// consulted for cancel.
func (s *Service) Apply(ctx context.Context, id string, act Action, caregiverID, reason string) (*model.Appointment, error) {
	switch act {
	case ActionAssign:
		return s.Assign(ctx, id, caregiverID)
	case ActionConfirm:
		return s.Confirm(ctx, id)
	case ActionDecline:
		return s.Decline(ctx, id, caregiverID)
	case ActionCancel:
		return s.Cancel(ctx, id, reason)
	case ActionComplete:
		return s.Complete(ctx, id)
	default:
		return nil, fault.New(fault.KindValidation, "unknown action %q", act)
	}
}

// Assign moves a PENDING appointment to ASSIGNED and records the caregiver.
// When two matches race on the same appointment, the compare-and-swap lets
// exactly one assign through; the loser gets a conflict and must re-run the
// match.
func (s *Service) Assign(ctx context.Context, id, caregiverID string) (*model.Appointment, error) {
	if caregiverID == "" {
		return nil, fault.New(fault.KindValidation, "caregiver id is required")
	}
	appt, err := s.store.UpdateStatus(ctx, id, model.StatusPending, model.StatusAssigned, Fields{CaregiverID: &caregiverID})
	s.finish(id, ActionAssign, model.StatusPending, model.StatusAssigned, err)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Confirm moves an ASSIGNED appointment to IN_PROGRESS.
func (s *Service) Confirm(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.store.UpdateStatus(ctx, id, model.StatusAssigned, model.StatusInProgress, Fields{})
	s.finish(id, ActionConfirm, model.StatusAssigned, model.StatusInProgress, err)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Decline returns the appointment to PENDING, clears the caregiver, records
// the decline in the exclusion set and requests a re-dispatch. The transition
// is written before the exclusion insert: if the insert fails the appointment
// is already PENDING again, and a caller retry is safe because decline permits
// PENDING as a source status and the insert is idempotent.
func (s *Service) Decline(ctx context.Context, id, caregiverID string) (*model.Appointment, error) {
	if caregiverID == "" {
		return nil, fault.New(fault.KindValidation, "caregiver id is required")
	}
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(cur.Status, ActionDecline)
	if err != nil {
		s.finish(id, ActionDecline, cur.Status, model.StatusPending, err)
		return nil, err
	}
	empty := ""
	appt, err := s.store.UpdateStatus(ctx, id, cur.Status, next, Fields{CaregiverID: &empty})
	s.finish(id, ActionDecline, cur.Status, next, err)
	if err != nil {
		return nil, err
	}
	if err := s.exclusions.AddDecline(ctx, id, caregiverID); err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "record decline for appointment %s", id)
	}
	if err := s.redispatch.RequestRedispatch(ctx, id); err != nil {
		// The appointment is consistent; the orchestrator can still find it
		// via polling, so a lost notification is logged, not fatal.
		s.log.Errorf("redispatch notification for %s: %v", id, err)
	}
	if s.bus != nil {
		s.bus.Publish(events.RedispatchRequested{AppointmentID: id, CaregiverID: caregiverID, Time: s.now()})
	}
	return appt, nil
}

// Cancel moves any non-terminal appointment to CANCELLED, records the reason
// and clears the exclusion set.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*model.Appointment, error) {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(cur.Status, ActionCancel)
	if err != nil {
		s.finish(id, ActionCancel, cur.Status, model.StatusCancelled, err)
		return nil, err
	}
	appt, err := s.store.UpdateStatus(ctx, id, cur.Status, next, Fields{CancellationReason: &reason})
	s.finish(id, ActionCancel, cur.Status, next, err)
	if err != nil {
		return nil, err
	}
	if err := s.exclusions.Clear(ctx, id); err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "clear exclusions for appointment %s", id)
	}
	return appt, nil
}

// Complete moves an IN_PROGRESS appointment to COMPLETED and clears the
// exclusion set.
func (s *Service) Complete(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.store.UpdateStatus(ctx, id, model.StatusInProgress, model.StatusCompleted, Fields{})
	s.finish(id, ActionComplete, model.StatusInProgress, model.StatusCompleted, err)
	if err != nil {
		return nil, err
	}
	if err := s.exclusions.Clear(ctx, id); err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "clear exclusions for appointment %s", id)
	}
	return appt, nil
}

// finish records the transition outcome on the metrics sink and event bus.
func (s *Service) finish(id string, act Action, from, to model.Status, err error) {
	ev := metrics.TransitionEvent{
		AppointmentID: id,
		Action:        string(act),
		From:          from.String(),
		To:            to.String(),
		Succeeded:     err == nil,
		Time:          s.now(),
	}
	if mErr := s.metrics.RecordTransition(ev); mErr != nil {
		s.log.Errorf("transition metrics error: %v", mErr)
	}
	if err == nil && s.bus != nil {
		s.bus.Publish(events.AppointmentTransitioned{
			AppointmentID: id,
			Action:        string(act),
			From:          from.String(),
			To:            to.String(),
			Time:          s.now(),
		})
	}
}
