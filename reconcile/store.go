/*
store.go - Persistence interface consumed by the reconciler

PURPOSE:
  Defines the read queries and the single insert the settlement needs from
  the external relational store. The reconciler never updates or deletes:
  credits are insert-only, per the engine contract.

UNIQUENESS CONTRACT:
  InsertCredit MUST enforce at-most-one credit per
  (student, academy, credit type, period label) and return
  ErrDuplicateCredit on violation. The application-level existence check
  (ExcusedCreditExists) is kept for the expected-no-op fast path, but the
  store constraint is what makes concurrent sweeps safe.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - reconcile/store: in-memory, for tests
*/
package reconcile

import (
	"context"
	"errors"

	"github.com/paca/billing-engine/billing"
)

// ErrDuplicateCredit is returned by InsertCredit when a credit with the
// same (student, academy, type, period label) already exists. This is an
// expected, loggable no-op outcome, not a failure.
var ErrDuplicateCredit = errors.New("credit already exists for settlement month")

// Store is the persistence boundary of the settlement engine.
type Store interface {
	// ListAcademies returns every academy id.
	ListAcademies(ctx context.Context) ([]AcademyID, error)

	// ListEligibleStudents returns the academy's students eligible for the
	// settlement month: active, not soft-deleted, positive monthly tuition,
	// a non-empty class-day set, and created strictly before monthStart.
	ListEligibleStudents(ctx context.Context, academyID AcademyID, monthStart billing.Date) ([]Student, error)

	// CountExcused counts attendance records with status "excused" in
	// [from, to] for the student.
	CountExcused(ctx context.Context, studentID StudentID, from, to billing.Date) (int, error)

	// CountMakeup counts attended (present/late) records in [from, to]
	// flagged as makeup classes, honoring both the explicit flag and the
	// legacy notes marker.
	CountMakeup(ctx context.Context, studentID StudentID, from, to billing.Date) (int, error)

	// ExcusedCreditExists reports whether an "excused" credit for the
	// settlement label already exists for the student/academy.
	ExcusedCreditExists(ctx context.Context, studentID StudentID, academyID AcademyID, label string) (bool, error)

	// InsertCredit persists a new credit. Returns ErrDuplicateCredit if the
	// settlement uniqueness constraint is violated.
	InsertCredit(ctx context.Context, credit CreditRecord) error

	// SaveRun persists (or updates by id) a settlement run audit record.
	SaveRun(ctx context.Context, run SettlementRun) error
}
