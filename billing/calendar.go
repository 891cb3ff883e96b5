/*
calendar.go - Class-occurrence counting

PURPOSE:
  The single shared primitive for all date-range billing math. Every other
  calculator (due dates, pro-ration, refunds, excused-credit settlement)
  routes weekday counting through CountClassDays so the weekday semantics
  stay consistent engine-wide.

THE FOUR-WEEK MONTH:
  Monthly pricing deliberately assumes 4 occurrences of each class weekday
  per month, even though a calendar month can produce 5. The discrepancy is
  compensated by the fifth-week bonus: extra occurrences beyond the nominal
  four offset excused absences during settlement. Do not replace the fixed
  assumption with actual week counting - the bonus exists to absorb it.
*/
package billing

import "time"

// ClassesPerWeekday is the nominal number of occurrences of each class
// weekday in a billing month.
const ClassesPerWeekday = 4

// CountClassDays counts days in [start, end] (inclusive) whose weekday is
// in the set. Returns 0 when start is after end or the set is empty.
func CountClassDays(start, end Date, set WeekdaySet) int {
	if set.IsEmpty() || start.After(end) {
		return 0
	}
	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if set.Contains(d.Weekday()) {
			count++
		}
	}
	return count
}

// MonthlyClassDays counts the actual class occurrences in a calendar month.
func MonthlyClassDays(year int, month time.Month, set WeekdaySet) int {
	return CountClassDays(StartOfMonth(year, month), EndOfMonth(year, month), set)
}

// ExpectedMonthlyClasses returns the nominal class count for a month under
// the fixed four-week assumption.
func ExpectedMonthlyClasses(set WeekdaySet) int {
	return set.Len() * ClassesPerWeekday
}

// FifthWeekBonus returns the class occurrences in (year, month) beyond the
// nominal four-per-weekday, e.g. a month with five Wednesdays yields 1 for
// a Wednesday-only schedule. Never negative.
func FifthWeekBonus(year int, month time.Month, set WeekdaySet) int {
	bonus := MonthlyClassDays(year, month, set) - ExpectedMonthlyClasses(set)
	if bonus < 0 {
		return 0
	}
	return bonus
}
