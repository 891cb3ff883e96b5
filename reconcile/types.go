/*
Package reconcile implements the monthly excused-absence settlement.

PURPOSE:
  Once per calendar month, on the month's last day, every eligible student's
  excused absences are netted against the compensating events of that month
  (fifth-week bonus classes and makeup classes). Any uncompensated excused
  absences become a carry-forward credit that reduces the next bill.

KEY CONCEPTS IN THIS FILE (types.go):
  - Student / AttendanceRecord: immutable inputs owned by the external store
  - CreditRecord: the only row this engine ever writes (insert-only)
  - SettlementMonth: the (year, month) pair a settlement run covers
  - SettlementReport: per-run aggregate totals and per-student outcomes

INVARIANT:
  At most ONE credit of type "excused" per (student, academy, month).
  Enforced twice: an application-level existence check (legacy behavior)
  and a storage-level unique constraint that closes the check-then-insert
  race (see store/sqlite).

SEE ALSO:
  - reconciler.go: the per-student settlement algorithm
  - scheduler.go: the daily trigger with the last-day-of-month guard
  - store.go: the persistence interface this package consumes
*/
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/paca/billing-engine/billing"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AcademyID string
type StudentID string

// =============================================================================
// STUDENT - Eligibility input (owned by the external store)
// =============================================================================

type Student struct {
	ID             StudentID
	AcademyID      AcademyID
	Name           string
	MonthlyTuition int64
	ClassDays      billing.WeekdaySet
	CreatedAt      billing.Date
	Active         bool
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
	StatusExcused AttendanceStatus = "excused"
)

// LegacyMakeupMarker is the free-text token that historically flagged a
// makeup class in attendance notes before the is_makeup column existed.
// Pre-migration rows still carry it, so makeup counting honors both signals.
const LegacyMakeupMarker = "보충"

type AttendanceRecord struct {
	StudentID StudentID
	Date      billing.Date
	Status    AttendanceStatus
	Makeup    bool
	Notes     string
}

// IsMakeup reports whether the record counts as a makeup class: an attended
// session carrying either the explicit flag or the legacy notes marker.
func (r AttendanceRecord) IsMakeup() bool {
	if r.Status != StatusPresent && r.Status != StatusLate {
		return false
	}
	return r.Makeup || strings.Contains(r.Notes, LegacyMakeupMarker)
}

// =============================================================================
// CREDIT RECORD - The engine's only output row
// =============================================================================

type CreditType string

const (
	CreditExcused   CreditType = "excused"
	CreditManual    CreditType = "manual"
	CreditRefund    CreditType = "refund"
	CreditCarryover CreditType = "carryover"
)

type CreditStatus string

const (
	CreditPending   CreditStatus = "pending"
	CreditPartial   CreditStatus = "partial"
	CreditApplied   CreditStatus = "applied"
	CreditCancelled CreditStatus = "cancelled"
)

// CreditRecord is a carry-forward financial credit. Amount is set once at
// creation; Remaining is monotonically consumed by the (external) apply
// path and never exceeds Amount.
type CreditRecord struct {
	ID          string
	StudentID   StudentID
	AcademyID   AcademyID
	Type        CreditType
	Amount      int64
	Remaining   int64
	Status      CreditStatus
	PeriodStart billing.Date
	PeriodEnd   billing.Date
	// PeriodLabel is the settlement month label ("2026-08"); together with
	// (student, academy, type) it is the storage-level uniqueness key.
	PeriodLabel string
	// Days is the number of uncompensated excused absences the credit covers.
	Days        int
	Description string
	CreatedAt   time.Time
}

// =============================================================================
// SETTLEMENT MONTH
// =============================================================================

// SettlementMonth identifies the calendar month a settlement run covers.
type SettlementMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the settlement month containing t.
func MonthOf(t time.Time) SettlementMonth {
	return SettlementMonth{Year: t.Year(), Month: t.Month()}
}

func (m SettlementMonth) Start() billing.Date { return billing.StartOfMonth(m.Year, m.Month) }
func (m SettlementMonth) End() billing.Date   { return billing.EndOfMonth(m.Year, m.Month) }

// Label returns the canonical "YYYY-MM" form used in credit descriptions
// and as the duplicate-detection key.
func (m SettlementMonth) Label() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m SettlementMonth) String() string { return m.Label() }

// =============================================================================
// OUTCOMES & REPORTS
// =============================================================================

// StudentOutcome classifies what settlement did for one student.
type StudentOutcome string

const (
	// OutcomeNoExcused: no excused absences this month; nothing to do.
	OutcomeNoExcused StudentOutcome = "no_excused"
	// OutcomeFullyOffset: bonus + makeup classes covered every excused absence.
	OutcomeFullyOffset StudentOutcome = "fully_offset"
	// OutcomeCreditIssued: a carry-forward credit was created.
	OutcomeCreditIssued StudentOutcome = "credit_issued"
	// OutcomeAlreadyExists: this month's credit already exists; expected no-op.
	OutcomeAlreadyExists StudentOutcome = "already_exists"
	// OutcomeError: this student failed; the batch continued without them.
	OutcomeError StudentOutcome = "error"
)

// StudentResult records the settlement arithmetic for one student.
type StudentResult struct {
	StudentID        StudentID
	Outcome          StudentOutcome
	ExcusedCount     int
	FifthWeekBonus   int
	MakeupCount      int
	RemainingExcused int
	CreditAmount     int64
	Err              error
}

// SettlementReport aggregates one sweep across academies.
type SettlementReport struct {
	Month             SettlementMonth
	StudentsProcessed int
	CreditsIssued     int
	TotalCredited     int64
	Errors            int
	Results           []StudentResult
}

// SettlementRun is the persisted audit record of one per-academy settlement.
type SettlementRun struct {
	ID                string
	AcademyID         AcademyID
	PeriodLabel       string
	Status            string // "running", "completed", "failed"
	StudentsProcessed int
	CreditsIssued     int
	TotalCredited     int64
	Error             string
	StartedAt         time.Time
	CompletedAt       *time.Time
}
