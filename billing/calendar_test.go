package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountClassDays(t *testing.T) {
	// March 2026: the 2nd is a Monday. Mon/Wed/Fri between Mar 2 and
	// Mar 31 inclusive gives 13 class days.
	mwf := NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)
	assert.Equal(t, 13, CountClassDays(NewDate(2026, time.March, 2), NewDate(2026, time.March, 31), mwf))

	// Joining Mar 16 leaves 7 of those days.
	assert.Equal(t, 7, CountClassDays(NewDate(2026, time.March, 16), NewDate(2026, time.March, 31), mwf))

	// Single-day range that is a class day.
	assert.Equal(t, 1, CountClassDays(NewDate(2026, time.March, 2), NewDate(2026, time.March, 2), mwf))
}

func TestCountClassDays_Degenerate(t *testing.T) {
	mwf := NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)

	// Empty set: no schedule, no class days.
	assert.Equal(t, 0, CountClassDays(NewDate(2026, time.March, 2), NewDate(2026, time.March, 31), WeekdaySet{}))

	// Inverted range.
	assert.Equal(t, 0, CountClassDays(NewDate(2026, time.March, 31), NewDate(2026, time.March, 2), mwf))
}

func TestMonthlyClassDays_FiveOccurrenceMonth(t *testing.T) {
	// July 2026 starts on a Wednesday: five Wednesdays, four Mondays.
	wed := NewWeekdaySet(time.Wednesday)
	mon := NewWeekdaySet(time.Monday)

	assert.Equal(t, 5, MonthlyClassDays(2026, time.July, wed))
	assert.Equal(t, 4, MonthlyClassDays(2026, time.July, mon))
	assert.Equal(t, 9, MonthlyClassDays(2026, time.July, NewWeekdaySet(time.Monday, time.Wednesday)))
}

func TestExpectedMonthlyClasses(t *testing.T) {
	assert.Equal(t, 8, ExpectedMonthlyClasses(NewWeekdaySet(time.Monday, time.Wednesday)))
	assert.Equal(t, 12, ExpectedMonthlyClasses(NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)))
	assert.Equal(t, 0, ExpectedMonthlyClasses(WeekdaySet{}))
}

func TestFifthWeekBonus(t *testing.T) {
	mw := NewWeekdaySet(time.Monday, time.Wednesday)

	// July 2026: 9 actual vs 8 expected.
	assert.Equal(t, 1, FifthWeekBonus(2026, time.July, mw))

	// February 2026 has exactly four of each weekday: never negative,
	// just zero.
	assert.Equal(t, 0, FifthWeekBonus(2026, time.February, mw))

	// Empty schedule contributes nothing.
	assert.Equal(t, 0, FifthWeekBonus(2026, time.July, WeekdaySet{}))
}
