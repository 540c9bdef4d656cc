package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mondayAt returns a fixed Monday (2025-06-02) at the given clock time in UTC.
func mondayAt(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2025-06-02 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAvailability_IsAvailableAt(t *testing.T) {
	workday := Availability{
		Monday: DaySchedule{Enabled: true, Start: "08:00", End: "17:00"},
	}

	tests := []struct {
		name     string
		avail    Availability
		at       time.Time
		expected bool
	}{
		{"inside window", workday, mondayAt("09:00"), true},
		{"after window", workday, mondayAt("18:00"), false},
		{"before window", workday, mondayAt("07:59"), false},
		{"start is inclusive", workday, mondayAt("08:00"), true},
		{"end is inclusive", workday, mondayAt("17:00"), true},
		{"disabled day", Availability{}, mondayAt("09:00"), false},
		{
			"other weekday disabled",
			workday,
			mondayAt("09:00").Add(24 * time.Hour), // Tuesday
			false,
		},
		{
			"malformed start",
			Availability{Monday: DaySchedule{Enabled: true, Start: "8:00", End: "17:00"}},
			mondayAt("09:00"),
			false,
		},
		{
			"malformed end",
			Availability{Monday: DaySchedule{Enabled: true, Start: "08:00", End: "25:61"}},
			mondayAt("09:00"),
			false,
		},
		{
			"empty times",
			Availability{Monday: DaySchedule{Enabled: true}},
			mondayAt("09:00"),
			false,
		},
		{
			"inverted window",
			Availability{Monday: DaySchedule{Enabled: true, Start: "17:00", End: "08:00"}},
			mondayAt("09:00"),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.avail.IsAvailableAt(tt.at))
		})
	}
}

func TestValidHHMM(t *testing.T) {
	valid := []string{"00:00", "08:30", "23:59"}
	for _, s := range valid {
		assert.True(t, validHHMM(s), s)
	}
	invalid := []string{"", "8:00", "24:00", "12:60", "12-30", "ab:cd", "12:345"}
	for _, s := range invalid {
		assert.False(t, validHHMM(s), s)
	}
}

func TestCaregiver_Dispatchable(t *testing.T) {
	tests := []struct {
		name     string
		c        Caregiver
		expected bool
	}{
		{"verified active", Caregiver{IsVerified: true, IsActive: true}, true},
		{"unverified", Caregiver{IsActive: true}, false},
		{"inactive", Caregiver{IsVerified: true}, false},
		{"banned", Caregiver{IsVerified: true, IsActive: true, IsBanned: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.c.Dispatchable())
		})
	}
}
