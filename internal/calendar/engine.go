package calendar

import "time"

// ComputeAvailability lists the bookable days in [start, end]. Days that are
// not working days or are blacked out are omitted entirely. Emergency
// capacity is reduced by the emergency bookings already on the day.
//
// Emergency bookings may still land on a non-working day; that capacity is
// not listed here and is enforced only when the booking is created.
func ComputeAvailability(start, end time.Time, settings Settings, blackouts map[string]struct{}, counts map[string]DayCount) []DayAvailability {
	start, end = Day(start), Day(end)
	out := make([]DayAvailability, 0)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !settings.IsWorkingDay(day.Weekday()) {
			continue
		}
		key := day.Format(DateLayout)
		if _, blocked := blackouts[key]; blocked {
			continue
		}
		booked := counts[key]
		available := max(0, settings.SlotsPerDay-booked.Regular)
		out = append(out, DayAvailability{
			Date:                    key,
			AvailableSlots:          available,
			IsFull:                  available == 0,
			EmergencySlotsAvailable: max(0, settings.EmergencySlotsPerDay-booked.Emergency),
		})
	}
	return out
}
