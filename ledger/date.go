package ledger

import (
	"time"
)

// =============================================================================
// DATE - Calendar date at day granularity (UTC)
// =============================================================================

type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// =============================================================================
// MONTH ARITHMETIC - For scheduled-transaction replay
// =============================================================================

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDate builds a date in (year, month) with day clamped to the month's
// length, so day 31 in February yields the 28th (or 29th).
func ClampedDate(year int, month time.Month, day int) Date {
	if max := DaysInMonth(year, month); day > max {
		day = max
	}
	if day < 1 {
		day = 1
	}
	return NewDate(year, month, day)
}

// NextMonth returns the (year, month) pair following the given one.
func NextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// MonthOnOrBefore reports whether (y, m) is the same calendar month as
// (refYear, refMonth) or an earlier one.
func MonthOnOrBefore(y int, m time.Month, refYear int, refMonth time.Month) bool {
	if y != refYear {
		return y < refYear
	}
	return m <= refMonth
}
