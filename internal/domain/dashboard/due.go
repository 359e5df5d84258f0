package dashboard

import "time"

// DayBounds returns the first and last instant of the calendar day that
// contains now in loc. The end is inclusive at microsecond precision,
// the resolution of stored timestamps.
func DayBounds(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1).Add(-time.Microsecond)
	return start, end
}
