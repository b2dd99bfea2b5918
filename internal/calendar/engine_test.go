package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func weekdaySettings() Settings {
	return Settings{
		WorkingDays:          []int{1, 2, 3, 4, 5},
		StartHour:            9,
		EndHour:              17,
		SlotDurationMinutes:  60,
		SlotsPerDay:          3,
		EmergencySlotsPerDay: 1,
	}
}

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestComputeAvailabilityOmitsClosedDays(t *testing.T) {
	// 2026-06-01 is a Monday.
	blackouts := map[string]struct{}{"2026-06-03": {}}
	counts := map[string]DayCount{
		"2026-06-02": {Regular: 3},
		"2026-06-04": {Regular: 1, Emergency: 1},
		"2026-06-05": {Regular: 5},
	}

	got := ComputeAvailability(date(t, "2026-06-01"), date(t, "2026-06-07"), weekdaySettings(), blackouts, counts)

	require.Equal(t, []DayAvailability{
		{Date: "2026-06-01", AvailableSlots: 3, IsFull: false, EmergencySlotsAvailable: 1},
		{Date: "2026-06-02", AvailableSlots: 0, IsFull: true, EmergencySlotsAvailable: 1},
		{Date: "2026-06-04", AvailableSlots: 2, IsFull: false, EmergencySlotsAvailable: 0},
		{Date: "2026-06-05", AvailableSlots: 0, IsFull: true, EmergencySlotsAvailable: 1},
	}, got)
}

func TestComputeAvailabilityOmitsWeekendEvenWithEmergencyCapacity(t *testing.T) {
	settings := weekdaySettings()
	settings.EmergencySlotsPerDay = 2

	// 2026-06-06 and 2026-06-07 are a weekend.
	got := ComputeAvailability(date(t, "2026-06-05"), date(t, "2026-06-08"), settings, nil,
		map[string]DayCount{"2026-06-06": {Emergency: 1}})

	require.Len(t, got, 2)
	require.Equal(t, "2026-06-05", got[0].Date)
	require.Equal(t, "2026-06-08", got[1].Date)
	require.Equal(t, 2, got[1].EmergencySlotsAvailable)
}

func TestComputeAvailabilitySingleDay(t *testing.T) {
	got := ComputeAvailability(date(t, "2026-06-06"), date(t, "2026-06-06"), weekdaySettings(), nil, nil)
	require.Empty(t, got)
	require.NotNil(t, got)

	got = ComputeAvailability(date(t, "2026-06-08"), date(t, "2026-06-08"), weekdaySettings(), nil, nil)
	require.Len(t, got, 1)
}

func TestComputeAvailabilityZeroCapacityDayIsFull(t *testing.T) {
	settings := weekdaySettings()
	settings.SlotsPerDay = 0
	got := ComputeAvailability(date(t, "2026-06-01"), date(t, "2026-06-01"), settings, nil, nil)
	require.Len(t, got, 1)
	require.True(t, got[0].IsFull)
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, weekdaySettings().Validate())

	bad := []func(*Settings){
		func(s *Settings) { s.WorkingDays = []int{7} },
		func(s *Settings) { s.StartHour, s.EndHour = 17, 9 },
		func(s *Settings) { s.EndHour = 25 },
		func(s *Settings) { s.SlotDurationMinutes = 0 },
		func(s *Settings) { s.EmergencySlotsPerDay = -1 },
	}
	for i, mutate := range bad {
		s := weekdaySettings()
		mutate(&s)
		require.Error(t, s.Validate(), "case %d", i)
	}
}

func TestWithinHours(t *testing.T) {
	s := weekdaySettings()
	at := func(h, m int) time.Time { return time.Date(2026, 6, 1, h, m, 0, 0, time.UTC) }

	require.True(t, s.WithinHours(at(9, 0), at(10, 0)))
	require.True(t, s.WithinHours(at(16, 0), at(17, 0)))
	require.False(t, s.WithinHours(at(8, 59), at(10, 0)))
	require.False(t, s.WithinHours(at(16, 30), at(17, 30)))
	require.False(t, s.WithinHours(at(17, 0), at(18, 0)))
}
