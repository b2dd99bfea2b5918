// Package calendar owns the shop calendar: working hours, blackout dates and
// the per-day availability derived from booking counters.
package calendar

import (
	"fmt"
	"slices"
	"time"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
)

// DateLayout is the wire and cache format of a calendar day.
const DateLayout = "2006-01-02"

// Settings is the singleton shop calendar configuration. Working days use
// time.Weekday numbering, 0 being Sunday.
type Settings struct {
	WorkingDays          []int     `json:"working_days"`
	StartHour            int       `json:"start_hour"`
	EndHour              int       `json:"end_hour"`
	SlotDurationMinutes  int       `json:"slot_duration_minutes"`
	SlotsPerDay          int       `json:"slots_per_day"`
	EmergencySlotsPerDay int       `json:"emergency_slots_per_day"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Validate checks the settings are internally consistent.
func (s Settings) Validate() error {
	for _, d := range s.WorkingDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: working day %d out of range 0-6", httpx.ErrValidation, d)
		}
	}
	if s.StartHour < 0 || s.EndHour > 24 || s.StartHour >= s.EndHour {
		return fmt.Errorf("%w: hours must satisfy 0 <= start_hour < end_hour <= 24", httpx.ErrValidation)
	}
	if s.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot_duration_minutes must be positive", httpx.ErrValidation)
	}
	if s.SlotsPerDay < 0 || s.EmergencySlotsPerDay < 0 {
		return fmt.Errorf("%w: slot counts must not be negative", httpx.ErrValidation)
	}
	return nil
}

// IsWorkingDay reports whether wd is open for regular bookings.
func (s Settings) IsWorkingDay(wd time.Weekday) bool {
	return slices.Contains(s.WorkingDays, int(wd))
}

// WithinHours reports whether [start, end) lies inside the working hours of
// start's day. Both times must already be in the shop timezone.
func (s Settings) WithinHours(start, end time.Time) bool {
	y, m, d := start.Date()
	open := time.Date(y, m, d, s.StartHour, 0, 0, 0, start.Location())
	closing := time.Date(y, m, d, s.EndHour, 0, 0, 0, start.Location())
	return !start.Before(open) && start.Before(closing) && !end.After(closing)
}

// BlackoutDate closes a day for all bookings.
type BlackoutDate struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// DayCount is the number of active bookings on a day.
type DayCount struct {
	Regular   int `json:"regular"`
	Emergency int `json:"emergency"`
}

// DayAvailability is one bookable day.
type DayAvailability struct {
	Date                    string `json:"date"`
	AvailableSlots          int    `json:"available_slots"`
	IsFull                  bool   `json:"is_full"`
	EmergencySlotsAvailable int    `json:"emergency_slots_available"`
}

// Availability is the response for an availability query.
type Availability struct {
	AvailableDates   []DayAvailability `json:"available_dates"`
	CalendarSettings Settings          `json:"calendar_settings"`
}

// Day truncates t to midnight UTC of its calendar date in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(raw string) (time.Time, error) {
	day, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", httpx.ErrValidation, raw)
	}
	return day, nil
}
