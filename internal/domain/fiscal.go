package domain

import "time"

// DefaultFiscalAnchorMonth is the month the accounting year begins. The
// fiscal year labeled N runs from month 10 of calendar year N-1 through
// month 9 of calendar year N.
const DefaultFiscalAnchorMonth = 10

// FiscalCalendar maps dates onto the accounting year. All annual aggregation
// and budget periods use this boundary, not the calendar year.
type FiscalCalendar struct {
	AnchorMonth time.Month
}

// NewFiscalCalendar returns a calendar anchored at the given month.
// Months outside 1..12 fall back to the default anchor.
func NewFiscalCalendar(anchorMonth int) FiscalCalendar {
	if anchorMonth < 1 || anchorMonth > 12 {
		anchorMonth = DefaultFiscalAnchorMonth
	}
	return FiscalCalendar{AnchorMonth: time.Month(anchorMonth)}
}

// YearOf returns the fiscal year a date belongs to.
func (c FiscalCalendar) YearOf(d time.Time) int {
	if c.AnchorMonth == time.January {
		return d.Year()
	}
	if d.Month() >= c.AnchorMonth {
		return d.Year() + 1
	}
	return d.Year()
}

// Start returns the first day of the given fiscal year.
func (c FiscalCalendar) Start(fiscalYear int) time.Time {
	if c.AnchorMonth == time.January {
		return time.Date(fiscalYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(fiscalYear-1, c.AnchorMonth, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first day after the given fiscal year.
func (c FiscalCalendar) End(fiscalYear int) time.Time {
	return c.Start(fiscalYear + 1)
}

// MonthsRemaining returns how many whole months of the fiscal year remain
// from the given date, counting the date's own month. Used for first-year
// proration of depreciation schedules.
func (c FiscalCalendar) MonthsRemaining(d time.Time) int {
	end := c.End(c.YearOf(d))
	months := int(end.Month()) - int(d.Month()) + 12*(end.Year()-d.Year())
	if months < 1 {
		months = 1
	}
	if months > 12 {
		months = 12
	}
	return months
}
