package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveDueDate_NominalDayIsClassDay(t *testing.T) {
	// GIVEN: Mon/Wed/Fri schedule, nominal due day the 2nd
	// WHEN: March 2026 (the 2nd is a Monday)
	// THEN: The nominal day itself is the due date
	mwf := NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)
	due := ResolveDueDate(2026, time.March, 2, mwf)
	assert.Equal(t, "2026-03-02", due.String())
}

func TestResolveDueDate_RollsForwardToNextClassDay(t *testing.T) {
	// GIVEN: Mon/Wed/Fri schedule, nominal due day the 7th
	// WHEN: March 2026 (the 7th is a Saturday)
	// THEN: Due date rolls to Monday the 9th
	mwf := NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)
	due := ResolveDueDate(2026, time.March, 7, mwf)
	assert.Equal(t, "2026-03-09", due.String())
	assert.Equal(t, time.Monday, due.Weekday())
}

func TestResolveDueDate_ClampsToMonthEnd(t *testing.T) {
	// Nominal day 31 in 30-day and 28/29-day months clamps to the last
	// valid day before scanning.
	anyDay := NewWeekdaySet(0, 1, 2, 3, 4, 5, 6)

	assert.Equal(t, "2026-04-30", ResolveDueDate(2026, time.April, 31, anyDay).String())
	assert.Equal(t, "2026-02-28", ResolveDueDate(2026, time.February, 31, anyDay).String())
	assert.Equal(t, "2028-02-29", ResolveDueDate(2028, time.February, 31, anyDay).String())
}

func TestResolveDueDate_RollsIntoNextMonth(t *testing.T) {
	// GIVEN: Friday-only schedule, nominal due day the 31st
	// WHEN: December 2026 (the 31st is a Thursday)
	// THEN: Due date is Friday, January 1st of the next year
	fri := NewWeekdaySet(time.Friday)
	due := ResolveDueDate(2026, time.December, 31, fri)
	assert.Equal(t, "2027-01-01", due.String())
	assert.Equal(t, time.Friday, due.Weekday())
}

func TestResolveDueDate_EmptySchedule(t *testing.T) {
	// No fixed schedule: the clamped nominal date is the due date.
	due := ResolveDueDate(2026, time.June, 31, WeekdaySet{})
	assert.Equal(t, "2026-06-30", due.String())
}

func TestResolveDueDate_NonPositiveDayClampsToFirst(t *testing.T) {
	mwf := NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)
	// March 1st 2026 is a Sunday; the first class day on or after is
	// Monday the 2nd.
	due := ResolveDueDate(2026, time.March, 0, mwf)
	assert.Equal(t, "2026-03-02", due.String())
}

func TestResolveDueDate_AlwaysWithinSevenDays(t *testing.T) {
	// A non-empty schedule always matches within 7 days of the nominal day.
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		set := NewWeekdaySet(wd)
		for day := 1; day <= 31; day++ {
			nominal := ResolveDueDate(2026, time.August, day, NewWeekdaySet(0, 1, 2, 3, 4, 5, 6))
			due := ResolveDueDate(2026, time.August, day, set)
			assert.True(t, due.AfterOrEqual(nominal))
			assert.True(t, due.BeforeOrEqual(nominal.AddDays(7)))
			assert.Equal(t, wd, due.Weekday())
		}
	}
}
