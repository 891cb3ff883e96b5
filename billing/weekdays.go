/*
weekdays.go - Weekly class-day sets

PURPOSE:
  A student's schedule is a small set of weekdays (e.g. Mon/Wed/Fri).
  WeekdaySet is the canonical representation used by every calculator.
  An EMPTY set universally means "no fixed schedule" and every calculator
  degrades gracefully for it - empty is valid, never an error.

LEGACY FORMATS:
  The upstream data store has accumulated three encodings of the same
  field over the years, all of which ParseWeekdaySet accepts:
    - JSON integer array:       "[1,3,5]"
    - comma-separated digits:   "1,3,5"
    - comma-separated Korean:   "월,수,금"
  Anything else is an input-shape error naming the offending token.

CONVENTION:
  0=Sunday .. 6=Saturday, matching time.Weekday.
*/
package billing

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// WeekdaySet is an immutable set of weekdays.
type WeekdaySet struct {
	mask uint8
}

// NewWeekdaySet builds a set from weekdays. Duplicates are collapsed.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s.mask |= 1 << uint(d%7)
	}
	return s
}

// WeekdaySetOf builds a set from integer indices, validating 0..6.
func WeekdaySetOf(days []int) (WeekdaySet, error) {
	var s WeekdaySet
	for _, d := range days {
		if d < 0 || d > 6 {
			return WeekdaySet{}, &InvalidWeekdayError{Token: strconv.Itoa(d)}
		}
		s.mask |= 1 << uint(d)
	}
	return s, nil
}

var koreanDays = map[string]time.Weekday{
	"일": time.Sunday, "월": time.Monday, "화": time.Tuesday, "수": time.Wednesday,
	"목": time.Thursday, "금": time.Friday, "토": time.Saturday,
}

var koreanDayNames = []string{"일", "월", "화", "수", "목", "금", "토"}

// ParseWeekdaySet parses any of the legacy schedule encodings.
// Empty or blank input yields the empty set.
func ParseWeekdaySet(raw string) (WeekdaySet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return WeekdaySet{}, nil
	}

	// JSON integer array
	if strings.HasPrefix(raw, "[") {
		var days []int
		if err := json.Unmarshal([]byte(raw), &days); err != nil {
			return WeekdaySet{}, &InvalidWeekdayError{Token: raw}
		}
		return WeekdaySetOf(days)
	}

	var s WeekdaySet
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			if n < 0 || n > 6 {
				return WeekdaySet{}, &InvalidWeekdayError{Token: tok}
			}
			s.mask |= 1 << uint(n)
			continue
		}
		d, ok := koreanDays[tok]
		if !ok {
			return WeekdaySet{}, &InvalidWeekdayError{Token: tok}
		}
		s.mask |= 1 << uint(d)
	}
	return s, nil
}

// Contains reports whether the weekday is in the set.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s.mask&(1<<uint(d%7)) != 0
}

// Len returns the number of weekdays in the set.
func (s WeekdaySet) Len() int {
	n := 0
	for d := 0; d < 7; d++ {
		if s.mask&(1<<uint(d)) != 0 {
			n++
		}
	}
	return n
}

// IsEmpty reports whether the student has no fixed schedule.
func (s WeekdaySet) IsEmpty() bool { return s.mask == 0 }

// Days returns the weekdays in ascending order (Sunday first).
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := 0; d < 7; d++ {
		if s.mask&(1<<uint(d)) != 0 {
			days = append(days, time.Weekday(d))
		}
	}
	return days
}

// String returns the canonical comma-separated index form, e.g. "1,3,5".
func (s WeekdaySet) String() string {
	parts := make([]string, 0, 7)
	for _, d := range s.Days() {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

// FormatKorean renders the set the way academy staff read it, e.g. "월, 수, 금".
func (s WeekdaySet) FormatKorean() string {
	parts := make([]string, 0, 7)
	for _, d := range s.Days() {
		parts = append(parts, koreanDayNames[d])
	}
	return strings.Join(parts, ", ")
}

// MarshalJSON encodes the set as a JSON integer array.
func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	days := s.Days()
	ints := make([]int, len(days))
	for i, d := range days {
		ints[i] = int(d)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON accepts a JSON integer array.
func (s *WeekdaySet) UnmarshalJSON(b []byte) error {
	var days []int
	if err := json.Unmarshal(b, &days); err != nil {
		return &InvalidWeekdayError{Token: string(b)}
	}
	set, err := WeekdaySetOf(days)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
