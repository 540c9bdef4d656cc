package match

import (
	"fmt"
	"time"

	"github.com/link-bedside-nurses/dispatch/core/model"
)

// Config tunes the matching orchestrator.
type Config struct {
	// DefaultRadiusMeters is used when a dispatch request omits the radius.
	DefaultRadiusMeters float64 `json:"default_radius_meters"`
	// QueryTimeoutSeconds bounds every collaborator read during a dispatch.
	QueryTimeoutSeconds int `json:"query_timeout_seconds"`
	// BusyStatuses lists the appointment statuses whose caregivers count as
	// busy. The default also counts caregivers tied to PENDING appointments,
	// which avoids offering the same caregiver to two open jobs.
	BusyStatuses []string `json:"busy_statuses"`
	// Timezone is the canonical timezone availability calendars are
	// evaluated in. Caregivers carry no per-record timezone.
	Timezone string `json:"timezone"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.DefaultRadiusMeters <= 0 {
		c.DefaultRadiusMeters = DefaultRadiusMeters
	}
	if c.QueryTimeoutSeconds <= 0 {
		c.QueryTimeoutSeconds = 5
	}
	if len(c.BusyStatuses) == 0 {
		c.BusyStatuses = []string{model.StatusPending.String(), model.StatusInProgress.String()}
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// Validate checks the status names and timezone resolve.
func (c Config) Validate() error {
	if _, err := c.busyStatuses(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

func (c Config) busyStatuses() ([]model.Status, error) {
	out := make([]model.Status, 0, len(c.BusyStatuses))
	for _, s := range c.BusyStatuses {
		st, err := model.ParseStatus(s)
		if err != nil {
			return nil, fmt.Errorf("busy_statuses: %w", err)
		}
		out = append(out, st)
	}
	return out, nil
}
