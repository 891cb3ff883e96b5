/*
date.go - Day-granularity calendar dates

PURPOSE:
  Every calculation in this engine operates on whole calendar days in the
  academy's local calendar. Date wraps time.Time normalized to midnight UTC
  so that comparisons and day arithmetic cannot be skewed by wall-clock
  components or zone offsets smuggled in by callers.

WEEKDAY CONVENTION:
  time.Weekday already matches the engine-wide convention:
  0=Sunday .. 6=Saturday. Date.Weekday returns it unchanged.

SEE ALSO:
  - calendar.go: day-range iteration built on Date
  - weekdays.go: the weekday-set type
*/
package billing

import (
	"fmt"
	"time"
)

// Date is a calendar date with day granularity.
type Date struct {
	t time.Time
}

// NewDate creates a Date. Out-of-range values are normalized the way
// time.Date normalizes them (e.g. Feb 30 becomes Mar 1 or 2).
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a date in ISO "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// Min returns the earlier of two dates.
func (d Date) Min(other Date) Date {
	if d.Before(other) {
		return d
	}
	return other
}

// =============================================================================
// MONTH HELPERS
// =============================================================================

// StartOfMonth returns the first day of (year, month).
func StartOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, 1)
}

// EndOfMonth returns the last day of (year, month), leap years included.
func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month+1, 1).AddDays(-1)
}

// DaysInMonth returns the number of days in (year, month).
func DaysInMonth(year int, month time.Month) int {
	return EndOfMonth(year, month).Day()
}

// IsLastDayOfMonth reports whether tomorrow falls on the 1st.
func IsLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Day() == 1
}
