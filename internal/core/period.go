package core

import "time"

// PeriodBounds returns the inclusive start and end dates of the
// accounting period containing date. Weekly periods run Monday through
// Sunday; monthly periods cover the calendar month. Times are truncated
// to midnight UTC so two transactions on the same day always land in
// the same period row.
func PeriodBounds(date time.Time, periodType Period) (start, end time.Time) {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch periodType {
	case Weekly:
		// time.Weekday counts Sunday as 0; shift so Monday is the origin.
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 6)
	default:
		start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	}
	return start, end
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
