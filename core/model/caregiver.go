package model

import "time"

// DaySchedule is one weekday entry of a caregiver's weekly calendar. Start and
// End use the fixed-width 24h "HH:mm" format so window checks reduce to a
// lexicographic comparison.
type DaySchedule struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Availability is a caregiver's weekly working calendar.
type Availability struct {
	Monday    DaySchedule `json:"monday"`
	Tuesday   DaySchedule `json:"tuesday"`
	Wednesday DaySchedule `json:"wednesday"`
	Thursday  DaySchedule `json:"thursday"`
	Friday    DaySchedule `json:"friday"`
	Saturday  DaySchedule `json:"saturday"`
	Sunday    DaySchedule `json:"sunday"`
}

// Day returns the schedule entry for the given weekday.
func (a Availability) Day(d time.Weekday) DaySchedule {
	switch d {
	case time.Monday:
		return a.Monday
	case time.Tuesday:
		return a.Tuesday
	case time.Wednesday:
		return a.Wednesday
	case time.Thursday:
		return a.Thursday
	case time.Friday:
		return a.Friday
	case time.Saturday:
		return a.Saturday
	default:
		return a.Sunday
	}
}

// IsAvailableAt reports whether the calendar covers the given instant.
// Malformed or inverted entries evaluate as unavailable, never as errors.
func (a Availability) IsAvailableAt(t time.Time) bool {
	day := a.Day(t.Weekday())
	if !day.Enabled {
		return false
	}
	if !validHHMM(day.Start) || !validHHMM(day.End) || day.Start > day.End {
		return false
	}
	hhmm := t.Format("15:04")
	return day.Start <= hhmm && hhmm <= day.End
}

// validHHMM checks the fixed-width zero-padded 24h "HH:mm" format.
func validHHMM(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	return hour < 24 && minute < 60
}

// Caregiver is a dispatchable service provider. The record is owned by the
// caregiver directory and read-only to the dispatch engine.
type Caregiver struct {
	ID           string       `json:"id"`
	Location     GeoPoint     `json:"location"`
	Availability Availability `json:"availability"`
	IsVerified   bool         `json:"is_verified"`
	IsActive     bool         `json:"is_active"`
	IsBanned     bool         `json:"is_banned"`
}

// Dispatchable reports whether the caregiver passes the verification
// predicate applied during matching.
func (c Caregiver) Dispatchable() bool {
	return c.IsVerified && c.IsActive && !c.IsBanned
}
