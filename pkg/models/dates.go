package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the ISO layout used on the command line and in saved records.
const DateLayout = "2006-01-02"

// MonthsBetween counts whole calendar months from a to b, truncated toward
// zero. A month completes once the day of month of a is reached again.
func MonthsBetween(a, b civil.Date) int {
	months := (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
	switch {
	case months > 0 && b.Day < a.Day:
		months--
	case months < 0 && b.Day > a.Day:
		months++
	}
	return months
}

// AddMonths moves d forward by n months, clamping to the last day of the
// target month (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(d civil.Date, n int) civil.Date {
	first := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day
	if day > last {
		day = last
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}
}
