/*
errors.go - Centralized error types for the billing calculators

PURPOSE:
  All calculator error types in one place. The calculators distinguish two
  kinds of bad input:

  1. Input-shape errors (malformed weekday token, unparseable date,
     inverted period, out-of-range discount): fail fast with one of the
     sentinels below so the calling layer can answer 4xx.
  2. Degenerate-but-valid inputs (empty weekday set, zero class days):
     NEVER errors. Each calculator defines an explicit fallback instead.

USAGE:
  if errors.Is(err, billing.ErrInvalidWeekday) { ... }

SEE ALSO:
  - reconcile package: settlement-side errors (duplicate credit, etc.)
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidWeekday is returned when a weekday index or token is outside
	// the 0=Sunday..6=Saturday range.
	ErrInvalidWeekday = errors.New("invalid weekday")

	// ErrInvalidDate is returned when a date string cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidDiscountRate is returned when a discount rate is outside 0-100.
	ErrInvalidDiscountRate = errors.New("invalid discount rate: must be 0-100")

	// ErrNegativeAmount is returned when a fee or paid amount is negative.
	ErrNegativeAmount = errors.New("negative amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidWeekdayError reports the offending token from weekday-set parsing.
type InvalidWeekdayError struct {
	Token string
}

func (e *InvalidWeekdayError) Error() string {
	return fmt.Sprintf("invalid weekday token %q (want 0-6 or a day name)", e.Token)
}

func (e *InvalidWeekdayError) Unwrap() error { return ErrInvalidWeekday }

// PeriodError reports the offending period bounds.
type PeriodError struct {
	Start Date
	End   Date
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("invalid period: %s ends before it starts (%s)", e.End, e.Start)
}

func (e *PeriodError) Unwrap() error { return ErrInvalidPeriod }

// IsClientError returns true if the error is due to invalid caller input.
// The API layer maps these to 400 responses.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidWeekday) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidDiscountRate) ||
		errors.Is(err, ErrNegativeAmount)
}
