package util

import "time"

// PreviousMonth returns the year and month for the previous calendar month
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// MonthBounds returns the half-open interval [start, end) covering the given
// calendar month in UTC
func MonthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ResolveMonth fills in zero month/year values with the current month and
// year. Callers resolve once per operation so a single aggregate never
// straddles a month boundary mid-computation.
func ResolveMonth(month, year int) (int, int) {
	now := time.Now().UTC()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return month, year
}

// ValidMonth reports whether month is in 1..12
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

// MonthStart returns the first instant of the given month in UTC
func MonthStart(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}
