package utils

import "time"

// DateLayout is the layout used for civic dates in ids and log tab names.
const DateLayout = "2006-01-02"

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a civic date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// PrettyDate formats t for human-facing messages.
func PrettyDate(t time.Time) string {
	return t.Format("Mon, 02 Jan 2006 15:04 MST")
}

// NthWeekday returns the day of month of the n-th given weekday in year/month (n starts at 1).
func NthWeekday(year int, month time.Month, weekday time.Weekday, n int) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return 1 + offset + (n-1)*7
}
