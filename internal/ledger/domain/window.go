package domain

import "time"

// WindowStart returns the UTC instant the window containing now begins at in
// the given location. Weeks start on Monday. The all-time window starts at
// the zero time.
func WindowStart(w Window, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	switch w {
	case WindowDaily:
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
	case WindowWeekly:
		offset := (int(local.Weekday()) + 6) % 7
		monday := local.AddDate(0, 0, -offset)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc).UTC()
	case WindowMonthly:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).UTC()
	case WindowYearly:
		return time.Date(local.Year(), 1, 1, 0, 0, 0, 0, loc).UTC()
	default:
		return time.Time{}
	}
}
