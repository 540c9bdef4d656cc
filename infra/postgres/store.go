// Package postgres implements the appointment persistence and caregiver
// directory contracts on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/link-bedside-nurses/dispatch/core/appointment"
	"github.com/link-bedside-nurses/dispatch/core/directory"
	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/logger"
	"github.com/link-bedside-nurses/dispatch/core/model"
)

// Config defines the PostgreSQL connection parameters.
type Config struct {
	URL string `json:"url"`
}

// Store provides appointment persistence and the geospatial caregiver search.
type Store struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// New connects to PostgreSQL and verifies the connection with a ping.
func New(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "postgres pool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fault.Wrap(err, fault.KindDependency, "postgres ping")
	}
	return &Store{pool: pool, log: log}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

const appointmentColumns = `id, patient_id, COALESCE(caregiver_id, ''), status,
	lat, lng, COALESCE(cancellation_reason, ''), created_at, updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var a model.Appointment
	var status string
	if err := row.Scan(&a.ID, &a.PatientID, &a.CaregiverID, &status,
		&a.Location.Lat, &a.Location.Lng, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	a.Status = st
	return &a, nil
}

// GetByID returns the appointment or a not-found error.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.New(fault.KindNotFound, "appointment %s not found", id)
	}
	if err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "get appointment %s", id)
	}
	return a, nil
}

// UpdateStatus performs the optimistic compare-and-swap: the row is updated
// only if its status still equals from. A missed swap on an existing row is a
// conflict, never a partial mutation.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to model.Status, fields appointment.Fields) (*model.Appointment, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET status = $3,
		     caregiver_id = CASE WHEN $4::bool THEN NULLIF($5, '') ELSE caregiver_id END,
		     cancellation_reason = CASE WHEN $6::bool THEN NULLIF($7, '') ELSE cancellation_reason END,
		     updated_at = now()
		 WHERE id = $1 AND status = $2
		 RETURNING `+appointmentColumns,
		id, from.String(), to.String(),
		fields.CaregiverID != nil, deref(fields.CaregiverID),
		fields.CancellationReason != nil, deref(fields.CancellationReason),
	)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if qErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); qErr != nil {
			return nil, fault.Wrap(qErr, fault.KindDependency, "update appointment %s", id)
		}
		if !exists {
			return nil, fault.New(fault.KindNotFound, "appointment %s not found", id)
		}
		return nil, fault.New(fault.KindConflict, "appointment %s is no longer %s", id, from)
	}
	if err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "update appointment %s", id)
	}
	return a, nil
}

// FindBusyCaregiverIDs returns the ids of caregivers tied to any appointment
// in one of the given statuses.
func (s *Store) FindBusyCaregiverIDs(ctx context.Context, statuses []model.Status) (map[string]struct{}, error) {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, st.String())
	}
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT caregiver_id FROM appointments
		 WHERE status = ANY($1) AND caregiver_id IS NOT NULL`, names)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "busy caregiver query")
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fault.Wrap(err, fault.KindDependency, "busy caregiver query")
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "busy caregiver query")
	}
	return out, nil
}

// FindNear returns not-deleted caregivers within radiusMeters of point,
// ordered by ascending great-circle distance. The haversine distance is
// computed in SQL so ordering and the radius cut happen in the database.
func (s *Store) FindNear(ctx context.Context, point model.GeoPoint, radiusMeters float64) ([]directory.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lat, lng, availability, is_verified, is_active, is_banned, distance_meters
		 FROM (
		     SELECT id, lat, lng, availability, is_verified, is_active, is_banned,
		            2 * 6371000 * asin(sqrt(
		                power(sin(radians(lat - $1) / 2), 2) +
		                cos(radians($1)) * cos(radians(lat)) *
		                power(sin(radians(lng - $2) / 2), 2)
		            )) AS distance_meters
		     FROM caregivers
		     WHERE deleted_at IS NULL
		 ) c
		 WHERE distance_meters <= $3
		 ORDER BY distance_meters ASC`,
		point.Lat, point.Lng, radiusMeters)
	if err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "geospatial search")
	}
	defer rows.Close()

	var out []directory.Candidate
	for rows.Next() {
		var c directory.Candidate
		var availability []byte
		if err := rows.Scan(&c.Caregiver.ID, &c.Caregiver.Location.Lat, &c.Caregiver.Location.Lng,
			&availability, &c.Caregiver.IsVerified, &c.Caregiver.IsActive, &c.Caregiver.IsBanned,
			&c.DistanceMeters); err != nil {
			return nil, fault.Wrap(err, fault.KindDependency, "geospatial search")
		}
		// A calendar that fails to decode leaves the zero Availability,
		// which evaluates as unavailable on every weekday.
		if len(availability) > 0 {
			if err := json.Unmarshal(availability, &c.Caregiver.Availability); err != nil {
				s.log.Warnf("caregiver %s: malformed availability: %v", c.Caregiver.ID, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "geospatial search")
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
