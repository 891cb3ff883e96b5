/*
reconciler.go - Monthly excused-credit settlement

PURPOSE:
  Implements the per-student settlement algorithm and the per-academy sweep
  around it.

PER-STUDENT ALGORITHM:
  1. Count excused absences in the month. Zero -> no-op.
  2. Fifth-week bonus = actual class occurrences - (weekdays x 4), floored
     at zero. A month with a fifth Wednesday gifts one extra class.
  3. Count makeup classes (explicit flag or legacy notes marker).
  4. remaining = excused - (bonus + makeup). Zero or less -> fully offset.
  5. per-class fee = truncate1000(tuition / (weekdays x 4));
     credit = truncate1000(per-class x remaining). Zero -> no-op.
  6. Existence check for this month's credit -> "already exists" no-op.
  7. Insert the credit (pending, amount = remaining amount).

FAILURE SEMANTICS:
  A student's error is recorded and logged; the sweep continues with the
  next student. Aggregate totals are reported even when individual
  students fail. A failed eligibility query fails that academy's run; the
  scheduler retries on its next invocation.

CONCURRENCY:
  Students are processed sequentially, which serializes the check-then-
  insert per student. Even if two sweeps race, the store's uniqueness
  constraint turns the loser's insert into an "already exists" outcome.
*/
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/paca/billing-engine/billing"
)

// Reconciler runs monthly excused-credit settlements against a Store.
type Reconciler struct {
	Store Store

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Reconciler.
func New(store Store) *Reconciler {
	return &Reconciler{Store: store, now: time.Now}
}

// SettleMonth sweeps every academy for the given settlement month and
// returns the aggregate report. Per-academy failures are reflected in the
// report and in run records; the sweep itself only fails if the academy
// list cannot be loaded.
func (r *Reconciler) SettleMonth(ctx context.Context, month SettlementMonth) (*SettlementReport, error) {
	log.Printf("[Reconciler] Starting excused-credit settlement for %s", month)

	academies, err := r.Store.ListAcademies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list academies: %w", err)
	}

	report := &SettlementReport{Month: month}
	for _, academyID := range academies {
		r.settleAcademy(ctx, academyID, month, report)
	}

	log.Printf("[Reconciler] Completed %s: %d students processed, %d credits issued (%d won), %d errors",
		month, report.StudentsProcessed, report.CreditsIssued, report.TotalCredited, report.Errors)

	return report, nil
}

// settleAcademy settles one academy, persisting a run record for audit.
func (r *Reconciler) settleAcademy(ctx context.Context, academyID AcademyID, month SettlementMonth, report *SettlementReport) {
	run := SettlementRun{
		ID:          fmt.Sprintf("run-%s", uuid.NewString()),
		AcademyID:   academyID,
		PeriodLabel: month.Label(),
		Status:      "running",
		StartedAt:   r.now(),
	}
	if err := r.Store.SaveRun(ctx, run); err != nil {
		log.Printf("[Reconciler] Academy %s: failed to save run record: %v", academyID, err)
	}

	students, err := r.Store.ListEligibleStudents(ctx, academyID, month.Start())
	if err != nil {
		log.Printf("[Reconciler] Academy %s: eligibility query failed: %v", academyID, err)
		run.Status = "failed"
		run.Error = err.Error()
		r.completeRun(ctx, run)
		report.Errors++
		return
	}

	for _, student := range students {
		result := r.settleStudent(ctx, student, month)
		report.Results = append(report.Results, result)
		report.StudentsProcessed++
		run.StudentsProcessed++

		switch result.Outcome {
		case OutcomeCreditIssued:
			report.CreditsIssued++
			report.TotalCredited += result.CreditAmount
			run.CreditsIssued++
			run.TotalCredited += result.CreditAmount
		case OutcomeError:
			report.Errors++
			log.Printf("[Reconciler] Student %s: settlement failed: %v", student.ID, result.Err)
		}
	}

	run.Status = "completed"
	r.completeRun(ctx, run)
}

func (r *Reconciler) completeRun(ctx context.Context, run SettlementRun) {
	done := r.now()
	run.CompletedAt = &done
	if err := r.Store.SaveRun(ctx, run); err != nil {
		log.Printf("[Reconciler] Academy %s: failed to update run record: %v", run.AcademyID, err)
	}
}

// settleStudent applies the per-student algorithm. Errors are captured in
// the result, never propagated.
func (r *Reconciler) settleStudent(ctx context.Context, student Student, month SettlementMonth) StudentResult {
	result := StudentResult{StudentID: student.ID}
	monthStart, monthEnd := month.Start(), month.End()

	excused, err := r.Store.CountExcused(ctx, student.ID, monthStart, monthEnd)
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = fmt.Errorf("count excused: %w", err)
		return result
	}
	result.ExcusedCount = excused
	if excused == 0 {
		result.Outcome = OutcomeNoExcused
		return result
	}

	result.FifthWeekBonus = billing.FifthWeekBonus(month.Year, month.Month, student.ClassDays)

	makeup, err := r.Store.CountMakeup(ctx, student.ID, monthStart, monthEnd)
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = fmt.Errorf("count makeup: %w", err)
		return result
	}
	result.MakeupCount = makeup

	remaining := excused - (result.FifthWeekBonus + makeup)
	if remaining <= 0 {
		result.Outcome = OutcomeFullyOffset
		log.Printf("[Reconciler] Student %s: %d excused fully offset (bonus %d, makeup %d)",
			student.ID, excused, result.FifthWeekBonus, makeup)
		return result
	}
	result.RemainingExcused = remaining

	expected := billing.ExpectedMonthlyClasses(student.ClassDays)
	if expected == 0 {
		// Eligibility requires a non-empty schedule; defensive only.
		result.Outcome = OutcomeNoExcused
		return result
	}
	perClass := billing.TruncateToThousand(student.MonthlyTuition / int64(expected))
	creditAmount := billing.TruncateToThousand(perClass * int64(remaining))
	if creditAmount <= 0 {
		result.Outcome = OutcomeFullyOffset
		return result
	}
	result.CreditAmount = creditAmount

	label := month.Label()
	exists, err := r.Store.ExcusedCreditExists(ctx, student.ID, student.AcademyID, label)
	if err != nil {
		result.Outcome = OutcomeError
		result.Err = fmt.Errorf("duplicate check: %w", err)
		return result
	}
	if exists {
		result.Outcome = OutcomeAlreadyExists
		log.Printf("[Reconciler] Student %s: credit for %s already exists", student.ID, label)
		return result
	}

	credit := CreditRecord{
		ID:          uuid.NewString(),
		StudentID:   student.ID,
		AcademyID:   student.AcademyID,
		Type:        CreditExcused,
		Amount:      creditAmount,
		Remaining:   creditAmount,
		Status:      CreditPending,
		PeriodStart: monthStart,
		PeriodEnd:   monthEnd,
		PeriodLabel: label,
		Days:        remaining,
		Description: fmt.Sprintf("excused credit %s: %d uncompensated (fifth-week bonus %d, makeup %d)",
			label, remaining, result.FifthWeekBonus, makeup),
		CreatedAt: r.now(),
	}

	if err := r.Store.InsertCredit(ctx, credit); err != nil {
		// A concurrent sweep won the insert race; same expected no-op as
		// the existence check above.
		if errors.Is(err, ErrDuplicateCredit) {
			result.Outcome = OutcomeAlreadyExists
			result.CreditAmount = 0
			log.Printf("[Reconciler] Student %s: credit for %s already exists (constraint)", student.ID, label)
			return result
		}
		result.Outcome = OutcomeError
		result.Err = fmt.Errorf("insert credit: %w", err)
		return result
	}

	result.Outcome = OutcomeCreditIssued
	log.Printf("[Reconciler] Student %s: issued %d won credit (%d excused after offset)",
		student.ID, creditAmount, remaining)
	return result
}
