package models

import "time"

// MonthWindow is the validity period of a monthly discount rule: the first
// calendar day of a month through the last day of the month five months
// later. Windows are recomputed on demand and never stored on their own.
type MonthWindow struct {
	From time.Time
	To   time.Time
}

// NewMonthWindow computes the window containing the reference time.
// Dates are normalized to UTC midnight.
func NewMonthWindow(ref time.Time) MonthWindow {
	ref = ref.UTC()
	from := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	// first day of month+6, minus one day = last day of month+5
	to := from.AddDate(0, 6, 0).AddDate(0, 0, -1)
	return MonthWindow{From: from, To: to}
}

// MonthName returns the human-readable month the window starts in,
// e.g. "December 2024". Used to build rule display names.
func (w MonthWindow) MonthName() string {
	return w.From.Format("January 2006")
}
