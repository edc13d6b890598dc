package utils

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// DayOf returns the calendar day of t in loc, as midnight UTC.
// DATE columns are read and written in UTC so the value round-trips unchanged.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares two calendar days ignoring clock time.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddDays shifts a calendar day.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// DayKey formats a calendar day as YYYY-MM-DD.
func DayKey(day time.Time) string {
	return day.Format(DayLayout)
}

// ISOWeekKey formats the ISO week containing day, e.g. 2026-W03.
func ISOWeekKey(day time.Time) string {
	y, w := day.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}
