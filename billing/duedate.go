/*
duedate.go - Payment due-date resolution

PURPOSE:
  A student's nominal due day (say, "the 25th") often lands on a day with
  no class. The academy collects tuition in person, so the effective due
  date is the first class day ON OR AFTER the nominal day. ResolveDueDate
  performs that resolution.

ALGORITHM:
  1. Clamp the nominal day to the month's last valid day (31st in a
     30-day month, Feb 29/30/31 in February, leap years included).
  2. No schedule? The clamped date IS the due date.
  3. Scan the clamped date plus up to 7 more days (8 candidates) and
     return the first class day, rolling into the next month if needed.
  4. Defensive fallback: a non-empty weekday set always matches within
     7 days, but if nothing matched, return the clamped date.

  Purely deterministic; every output is a valid calendar date.
*/
package billing

import "time"

// ResolveDueDate resolves the effective payment due date for (year, month)
// given the nominal due day and the student's weekly class days.
func ResolveDueDate(year int, month time.Month, nominalDueDay int, set WeekdaySet) Date {
	day := nominalDueDay
	if day < 1 {
		day = 1
	}
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	due := NewDate(year, month, day)

	if set.IsEmpty() {
		return due
	}

	for offset := 0; offset <= 7; offset++ {
		candidate := due.AddDays(offset)
		if set.Contains(candidate.Weekday()) {
			return candidate
		}
	}

	// Unreachable with a non-empty set; kept for parity with the clamp rule.
	return due
}
