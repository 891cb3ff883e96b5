package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paca/billing-engine/billing"
	"github.com/paca/billing-engine/reconcile"
	"github.com/paca/billing-engine/reconcile/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// july2026 has five Wednesdays, so a Mon/Wed schedule earns a one-class
// fifth-week bonus.
var july2026 = reconcile.SettlementMonth{Year: 2026, Month: time.July}

func monWedStudent(id string) reconcile.Student {
	return reconcile.Student{
		ID:             reconcile.StudentID(id),
		AcademyID:      "academy-1",
		Name:           "Test Student",
		MonthlyTuition: 200000,
		ClassDays:      billing.NewWeekdaySet(time.Monday, time.Wednesday),
		CreatedAt:      billing.NewDate(2026, time.January, 5),
		Active:         true,
	}
}

func attendance(id string, day int, status reconcile.AttendanceStatus) reconcile.AttendanceRecord {
	return reconcile.AttendanceRecord{
		StudentID: reconcile.StudentID(id),
		Date:      billing.NewDate(2026, time.July, day),
		Status:    status,
	}
}

func findResult(t *testing.T, report *reconcile.SettlementReport, id string) reconcile.StudentResult {
	t.Helper()
	for _, r := range report.Results {
		if r.StudentID == reconcile.StudentID(id) {
			return r
		}
	}
	t.Fatalf("no result for student %s", id)
	return reconcile.StudentResult{}
}

// =============================================================================
// PER-STUDENT SETTLEMENT ARITHMETIC
// =============================================================================

func TestSettleMonth_CreditForUncompensatedExcused(t *testing.T) {
	// GIVEN: 200,000/month Mon/Wed student, July 2026 (bonus 1),
	//        3 excused absences and 1 makeup class
	// WHEN: Settling July
	// THEN: remaining = 3 - (1 + 1) = 1; credit = truncate1000(25,000 x 1)
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 13, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 20, reconcile.StatusExcused))
	mem.AddAttendance(reconcile.AttendanceRecord{
		StudentID: "stu-1",
		Date:      billing.NewDate(2026, time.July, 25),
		Status:    reconcile.StatusPresent,
		Makeup:    true,
	})

	report, err := reconcile.New(mem).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	result := findResult(t, report, "stu-1")
	assert.Equal(t, reconcile.OutcomeCreditIssued, result.Outcome)
	assert.Equal(t, 3, result.ExcusedCount)
	assert.Equal(t, 1, result.FifthWeekBonus)
	assert.Equal(t, 1, result.MakeupCount)
	assert.Equal(t, 1, result.RemainingExcused)
	assert.Equal(t, int64(25000), result.CreditAmount)

	credits := mem.Credits()
	require.Len(t, credits, 1)
	c := credits[0]
	assert.Equal(t, reconcile.CreditExcused, c.Type)
	assert.Equal(t, reconcile.CreditPending, c.Status)
	assert.Equal(t, int64(25000), c.Amount)
	assert.Equal(t, c.Amount, c.Remaining)
	assert.Equal(t, "2026-07", c.PeriodLabel)
	assert.Equal(t, "2026-07-01", c.PeriodStart.String())
	assert.Equal(t, "2026-07-31", c.PeriodEnd.String())
	assert.Equal(t, 1, c.Days)
	assert.Contains(t, c.Description, "2026-07")
}

func TestSettleMonth_FullyOffset_NoCredit(t *testing.T) {
	// GIVEN: 2 excused absences, a fifth-week bonus of 1 and 1 makeup class
	// THEN: Fully offset; no credit row
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 13, reconcile.StatusExcused))
	mem.AddAttendance(reconcile.AttendanceRecord{
		StudentID: "stu-1",
		Date:      billing.NewDate(2026, time.July, 27),
		Status:    reconcile.StatusLate,
		Makeup:    true,
	})

	report, err := reconcile.New(mem).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	assert.Equal(t, reconcile.OutcomeFullyOffset, findResult(t, report, "stu-1").Outcome)
	assert.Empty(t, mem.Credits())
	assert.Equal(t, 0, report.CreditsIssued)
}

func TestSettleMonth_NoExcusedAbsences_NoOp(t *testing.T) {
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusPresent))
	mem.AddAttendance(attendance("stu-1", 8, reconcile.StatusAbsent)) // unexcused

	report, err := reconcile.New(mem).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	assert.Equal(t, reconcile.OutcomeNoExcused, findResult(t, report, "stu-1").Outcome)
	assert.Empty(t, mem.Credits())
}

func TestSettleMonth_LegacyNotesMarkerCountsAsMakeup(t *testing.T) {
	// Pre-migration attendance rows flag makeup classes in free text only.
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 13, reconcile.StatusExcused))
	mem.AddAttendance(reconcile.AttendanceRecord{
		StudentID: "stu-1",
		Date:      billing.NewDate(2026, time.July, 30),
		Status:    reconcile.StatusPresent,
		Notes:     "7월 보충 수업",
	})

	report, err := reconcile.New(mem).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	result := findResult(t, report, "stu-1")
	assert.Equal(t, 1, result.MakeupCount)
	assert.Equal(t, reconcile.OutcomeFullyOffset, result.Outcome)
}

func TestSettleMonth_AbsentWithMakeupFlag_NotCounted(t *testing.T) {
	// The makeup signal only counts on attended sessions.
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 8, reconcile.StatusExcused))
	mem.AddAttendance(reconcile.AttendanceRecord{
		StudentID: "stu-1",
		Date:      billing.NewDate(2026, time.July, 30),
		Status:    reconcile.StatusAbsent,
		Makeup:    true,
	})

	report, err := reconcile.New(mem).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	result := findResult(t, report, "stu-1")
	assert.Equal(t, 0, result.MakeupCount)
	// 2 excused - bonus 1 = 1 remaining.
	assert.Equal(t, reconcile.OutcomeCreditIssued, result.Outcome)
	assert.Equal(t, int64(25000), result.CreditAmount)
}

// =============================================================================
// IDEMPOTENCY
// =============================================================================

func TestSettleMonth_SecondRunIsNoOp(t *testing.T) {
	// GIVEN: A month already settled
	// WHEN: Running the same settlement again
	// THEN: "already exists" outcome, still exactly one credit
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 13, reconcile.StatusExcused))

	r := reconcile.New(mem)
	ctx := context.Background()

	first, err := r.SettleMonth(ctx, july2026)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CreditsIssued)

	second, err := r.SettleMonth(ctx, july2026)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreditsIssued)
	assert.Equal(t, reconcile.OutcomeAlreadyExists, findResult(t, second, "stu-1").Outcome)

	assert.Len(t, mem.Credits(), 1)
}

func TestSettleMonth_DifferentMonthsGetSeparateCredits(t *testing.T) {
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	// February 2026 has exactly four of each weekday: no fifth-week bonus.
	mem.AddAttendance(reconcile.AttendanceRecord{
		StudentID: "stu-1", Date: billing.NewDate(2026, time.February, 2), Status: reconcile.StatusExcused,
	})
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 13, reconcile.StatusExcused))

	r := reconcile.New(mem)
	ctx := context.Background()

	_, err := r.SettleMonth(ctx, reconcile.SettlementMonth{Year: 2026, Month: time.February})
	require.NoError(t, err)
	_, err = r.SettleMonth(ctx, july2026)
	require.NoError(t, err)

	credits := mem.Credits()
	require.Len(t, credits, 2)
	labels := []string{credits[0].PeriodLabel, credits[1].PeriodLabel}
	assert.ElementsMatch(t, []string{"2026-02", "2026-07"}, labels)
}

// =============================================================================
// ELIGIBILITY & ISOLATION
// =============================================================================

func TestSettleMonth_IneligibleStudentsSkipped(t *testing.T) {
	mem := store.NewMemory()

	inactive := monWedStudent("stu-inactive")
	inactive.Active = false
	mem.AddStudent(inactive)

	free := monWedStudent("stu-free")
	free.MonthlyTuition = 0
	mem.AddStudent(free)

	unscheduled := monWedStudent("stu-unscheduled")
	unscheduled.ClassDays = billing.WeekdaySet{}
	mem.AddStudent(unscheduled)

	newcomer := monWedStudent("stu-newcomer")
	newcomer.CreatedAt = billing.NewDate(2026, time.July, 10)
	mem.AddStudent(newcomer)

	for _, id := range []string{"stu-inactive", "stu-free", "stu-unscheduled", "stu-newcomer"} {
		mem.AddAttendance(attendance(id, 6, reconcile.StatusExcused))
	}

	report, err := reconcile.New(mem).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	assert.Equal(t, 0, report.StudentsProcessed)
	assert.Empty(t, mem.Credits())
}

func TestSettleMonth_PerStudentErrorDoesNotStopSweep(t *testing.T) {
	// GIVEN: One student whose attendance queries fail
	// WHEN: Settling the month
	// THEN: The healthy student still gets their credit
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-bad"))
	mem.AddStudent(monWedStudent("stu-good"))
	mem.AddAttendance(attendance("stu-bad", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-good", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-good", 13, reconcile.StatusExcused))

	faulty := &faultyStore{Memory: mem, failFor: "stu-bad"}
	report, err := reconcile.New(faulty).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.CreditsIssued)

	bad := findResult(t, report, "stu-bad")
	assert.Equal(t, reconcile.OutcomeError, bad.Outcome)
	assert.Error(t, bad.Err)

	good := findResult(t, report, "stu-good")
	assert.Equal(t, reconcile.OutcomeCreditIssued, good.Outcome)
}

func TestSettleMonth_InsertRaceReportsAlreadyExists(t *testing.T) {
	// The existence check passes but another sweep wins the insert: the
	// store constraint turns the loser into an expected no-op.
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 13, reconcile.StatusExcused))

	racy := &racingStore{Memory: mem}
	report, err := reconcile.New(racy).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	result := findResult(t, report, "stu-1")
	assert.Equal(t, reconcile.OutcomeAlreadyExists, result.Outcome)
	assert.Equal(t, 0, report.CreditsIssued)
	assert.Len(t, mem.Credits(), 1) // only the racing sweep's credit
}

// =============================================================================
// RUN AUDIT RECORDS
// =============================================================================

func TestSettleMonth_PersistsRunRecord(t *testing.T) {
	mem := store.NewMemory()
	mem.AddStudent(monWedStudent("stu-1"))
	mem.AddAttendance(attendance("stu-1", 6, reconcile.StatusExcused))
	mem.AddAttendance(attendance("stu-1", 13, reconcile.StatusExcused))

	_, err := reconcile.New(mem).SettleMonth(context.Background(), july2026)
	require.NoError(t, err)

	runs := mem.Runs()
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, reconcile.AcademyID("academy-1"), run.AcademyID)
	assert.Equal(t, "2026-07", run.PeriodLabel)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 1, run.StudentsProcessed)
	assert.Equal(t, 1, run.CreditsIssued)
	assert.Equal(t, int64(25000), run.TotalCredited)
	require.NotNil(t, run.CompletedAt)
}

// =============================================================================
// TEST DOUBLES
// =============================================================================

// faultyStore fails attendance queries for one student.
type faultyStore struct {
	*store.Memory
	failFor reconcile.StudentID
}

func (f *faultyStore) CountExcused(ctx context.Context, studentID reconcile.StudentID, from, to billing.Date) (int, error) {
	if studentID == f.failFor {
		return 0, assert.AnError
	}
	return f.Memory.CountExcused(ctx, studentID, from, to)
}

// racingStore simulates a concurrent sweep inserting the same credit
// between the existence check and the insert.
type racingStore struct {
	*store.Memory
}

func (r *racingStore) ExcusedCreditExists(ctx context.Context, studentID reconcile.StudentID, academyID reconcile.AcademyID, label string) (bool, error) {
	exists, err := r.Memory.ExcusedCreditExists(ctx, studentID, academyID, label)
	if err != nil || exists {
		return exists, err
	}
	// The rival sweep lands its insert first.
	rival := reconcile.CreditRecord{
		ID:          "rival-" + string(studentID) + "-" + label,
		StudentID:   studentID,
		AcademyID:   academyID,
		Type:        reconcile.CreditExcused,
		Amount:      1000,
		Remaining:   1000,
		Status:      reconcile.CreditPending,
		PeriodLabel: label,
		CreatedAt:   time.Now(),
	}
	if err := r.Memory.InsertCredit(ctx, rival); err != nil {
		return false, err
	}
	return false, nil
}
