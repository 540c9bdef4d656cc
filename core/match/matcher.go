// Package match implements the dispatch orchestrator: given an appointment
// and a location, it produces the ranked list of caregivers that may
// legitimately be offered the job.
package match

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/link-bedside-nurses/dispatch/core/appointment"
	"github.com/link-bedside-nurses/dispatch/core/directory"
	"github.com/link-bedside-nurses/dispatch/core/events"
	"github.com/link-bedside-nurses/dispatch/core/exclusion"
	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/logger"
	"github.com/link-bedside-nurses/dispatch/core/metrics"
	"github.com/link-bedside-nurses/dispatch/core/model"
	"github.com/link-bedside-nurses/dispatch/internal/eventbus"
)

const (
	// DefaultRadiusMeters is the search radius when the caller omits one.
	DefaultRadiusMeters = 10000
	// MinLimit and MaxLimit bound the result size. Out-of-range limits are
	// clamped rather than rejected.
	MinLimit = 1
	MaxLimit = 20
)

// RankedCandidate is an eligible caregiver ordered by distance.
type RankedCandidate struct {
	Caregiver      model.Caregiver `json:"caregiver"`
	DistanceMeters float64         `json:"distance_meters"`
}

// Matcher composes the busy-set query, the exclusion store and the geospatial
// search into a ranked, filtered candidate list.
type Matcher struct {
	store        appointment.Store
	exclusions   exclusion.Store
	directory    directory.Directory
	busyStatuses []model.Status
	radius       float64
	timeout      time.Duration
	loc          *time.Location
	log          logger.Logger
	metrics      metrics.Sink
	bus          eventbus.EventBus
	now          func() time.Time
}

// New creates a Matcher. Store, exclusion store, directory and logger are
// mandatory; bus and metrics sink may be nil.
func New(store appointment.Store, excl exclusion.Store, dir directory.Directory, cfg Config, bus eventbus.EventBus, log logger.Logger, sink metrics.Sink) (*Matcher, error) {
	if store == nil || excl == nil || dir == nil || log == nil {
		return nil, fault.New(fault.KindValidation, "nil parameter provided to match.New")
	}
	cfg.SetDefaults()
	busy, err := cfg.busyStatuses()
	if err != nil {
		return nil, fault.Wrap(err, fault.KindValidation, "match config")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindValidation, "match config timezone")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Matcher{
		store:        store,
		exclusions:   excl,
		directory:    dir,
		busyStatuses: busy,
		radius:       cfg.DefaultRadiusMeters,
		timeout:      time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		loc:          loc,
		log:          log,
		metrics:      sink,
		bus:          bus,
		now:          time.Now,
	}, nil
}

// SetClock overrides the time source used for availability evaluation.
func (m *Matcher) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// NearestAvailableCaregivers returns up to limit caregivers near point that
// are not busy, not excluded for the appointment, verified, active, not
// banned and available at the current instant, ordered by ascending distance.
// An empty list is a valid outcome. Any collaborator failure aborts the whole
// operation; partial results are never returned.
func (m *Matcher) NearestAvailableCaregivers(ctx context.Context, appointmentID string, point model.GeoPoint, radiusMeters float64, limit int) ([]RankedCandidate, error) {
	if appointmentID == "" {
		return nil, fault.New(fault.KindValidation, "appointment id is required")
	}
	if err := point.Validate(); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		radiusMeters = m.radius
	}
	if limit < MinLimit {
		limit = MinLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	start := m.now()

	// The three independent reads run concurrently and join fail-fast: the
	// first error cancels the siblings and aborts the dispatch.
	gctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	g, gctx := errgroup.WithContext(gctx)

	var (
		busy       map[string]struct{}
		declined   map[string]struct{}
		candidates []directory.Candidate
	)
	g.Go(func() error {
		var err error
		busy, err = m.store.FindBusyCaregiverIDs(gctx, m.busyStatuses)
		return wrapDependency(err, "busy caregiver query")
	})
	g.Go(func() error {
		var err error
		declined, err = m.exclusions.ListExcluded(gctx, appointmentID)
		return wrapDependency(err, "exclusion set query")
	})
	g.Go(func() error {
		var err error
		candidates, err = m.directory.FindNear(gctx, point, radiusMeters)
		return wrapDependency(err, "geospatial search")
	})
	if err := g.Wait(); err != nil {
		m.log.Errorf("match for %s aborted: %v", appointmentID, err)
		return nil, err
	}

	instant := m.now().In(m.loc)
	ranked := make([]RankedCandidate, 0, limit)
	for _, c := range candidates {
		if len(ranked) == limit {
			break
		}
		if _, ok := busy[c.Caregiver.ID]; ok {
			continue
		}
		if _, ok := declined[c.Caregiver.ID]; ok {
			continue
		}
		if !c.Caregiver.Dispatchable() {
			continue
		}
		if !c.Caregiver.Availability.IsAvailableAt(instant) {
			continue
		}
		ranked = append(ranked, RankedCandidate{Caregiver: c.Caregiver, DistanceMeters: c.DistanceMeters})
	}

	m.log.Debugw("match completed", map[string]any{
		"appointment_id": appointmentID,
		"candidates":     len(candidates),
		"returned":       len(ranked),
	})
	res := metrics.MatchResult{
		AppointmentID: appointmentID,
		Candidates:    len(candidates),
		Filtered:      len(candidates) - len(ranked),
		Returned:      len(ranked),
		Latency:       m.now().Sub(start),
		Time:          m.now(),
	}
	if err := m.metrics.RecordMatchResult(res); err != nil {
		m.log.Errorf("match metrics error: %v", err)
	}
	if m.bus != nil {
		m.bus.Publish(events.MatchCompleted{
			AppointmentID: appointmentID,
			Candidates:    len(candidates),
			Returned:      len(ranked),
			Time:          m.now(),
		})
	}
	return ranked, nil
}

// wrapDependency classifies collaborator failures as retryable dependency
// errors unless they already carry a kind.
func wrapDependency(err error, what string) error {
	if err == nil {
		return nil
	}
	if fault.KindOf(err) != fault.KindUnknown {
		return err
	}
	return fault.Wrap(err, fault.KindDependency, "%s", what)
}
