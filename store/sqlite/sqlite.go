/*
Package sqlite provides the SQLite-backed implementation of the settlement
storage interfaces.

PURPOSE:
  Implements reconcile.Store plus the read/write surface the API layer
  needs (credit listings, settlement run history, fixture inserts). The
  same patterns apply to MySQL/PostgreSQL in production - only minor SQL
  dialect differences.

KEY TABLES:
  students:        eligibility inputs (status, tuition, class days, created_at)
  attendance:      per-class-date records with status, makeup flag, notes
  credits:         carry-forward credits (insert-only from this engine)
  settlement_runs: audit trail of monthly sweeps

UNIQUENESS:
  idx_credits_unique_settlement on
  (student_id, academy_id, credit_type, period_label) is what guarantees
  at-most-one excused credit per student per month even when two sweeps
  race: the application-level existence check is a fast path, the index
  is the invariant. Violations map to reconcile.ErrDuplicateCredit.

INSERT-ONLY:
  The engine never updates or deletes credits. The CHECK constraint
  remaining_amount <= credit_amount guards the consumption invariant for
  whichever (external) apply path mutates remaining later.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block
  and crash recovery is cleaner.

USAGE:
  st, err := sqlite.New("./data/paca.db")
  if err != nil { log.Fatal(err) }
  defer st.Close()
  reconciler := reconcile.New(st)

SEE ALSO:
  - reconcile/store.go: interface definition
  - reconcile/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/paca/billing-engine/billing"
	"github.com/paca/billing-engine/reconcile"
)

// Store implements reconcile.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		academy_id TEXT NOT NULL,
		name TEXT NOT NULL,
		monthly_tuition INTEGER NOT NULL DEFAULT 0,
		class_days TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		deleted_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_academy
		ON students(academy_id, status);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		class_date TEXT NOT NULL,
		status TEXT NOT NULL,
		is_makeup INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student_date
		ON attendance(student_id, class_date);

	-- Carry-forward credits (insert-only from the engine)
	CREATE TABLE IF NOT EXISTS credits (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		academy_id TEXT NOT NULL,
		credit_type TEXT NOT NULL,
		credit_amount INTEGER NOT NULL,
		remaining_amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		period_label TEXT NOT NULL,
		rest_days INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		CHECK (remaining_amount <= credit_amount)
	);

	CREATE INDEX IF NOT EXISTS idx_credits_student
		ON credits(student_id, academy_id);

	-- CRITICAL: at most ONE credit per (student, academy, type, month).
	-- Closes the check-then-insert race between concurrent sweeps.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_credits_unique_settlement
		ON credits(student_id, academy_id, credit_type, period_label);

	-- Settlement run audit trail
	CREATE TABLE IF NOT EXISTS settlement_runs (
		id TEXT PRIMARY KEY,
		academy_id TEXT NOT NULL,
		period_label TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		students_processed INTEGER NOT NULL DEFAULT 0,
		credits_issued INTEGER NOT NULL DEFAULT 0,
		total_credited INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_settlement_runs_label
		ON settlement_runs(period_label, academy_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// reconcile.Store
// =============================================================================

func (s *Store) ListAcademies(ctx context.Context) ([]reconcile.AcademyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT academy_id FROM students ORDER BY academy_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list academies: %w", err)
	}
	defer rows.Close()

	var ids []reconcile.AcademyID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, reconcile.AcademyID(id))
	}
	return ids, rows.Err()
}

func (s *Store) ListEligibleStudents(ctx context.Context, academyID reconcile.AcademyID, monthStart billing.Date) ([]reconcile.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, academy_id, name, monthly_tuition, class_days, created_at
		FROM students
		WHERE academy_id = ?
		  AND status = 'active'
		  AND deleted_at IS NULL
		  AND monthly_tuition > 0
		  AND class_days != ''
		  AND class_days != '[]'
		  AND DATE(created_at) < ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, string(academyID), monthStart.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible students: %w", err)
	}
	defer rows.Close()

	var students []reconcile.Student
	for rows.Next() {
		var (
			id, academy, name, classDays, createdAt string
			tuition                                 int64
		)
		if err := rows.Scan(&id, &academy, &name, &tuition, &classDays, &createdAt); err != nil {
			return nil, err
		}

		set, err := billing.ParseWeekdaySet(classDays)
		if err != nil {
			return nil, fmt.Errorf("student %s has malformed class days %q: %w", id, classDays, err)
		}
		if set.IsEmpty() {
			continue
		}

		created, err := parseStoredDate(createdAt)
		if err != nil {
			return nil, fmt.Errorf("student %s has malformed created_at %q: %w", id, createdAt, err)
		}

		students = append(students, reconcile.Student{
			ID:             reconcile.StudentID(id),
			AcademyID:      reconcile.AcademyID(academy),
			Name:           name,
			MonthlyTuition: tuition,
			ClassDays:      set,
			CreatedAt:      created,
			Active:         true,
		})
	}
	return students, rows.Err()
}

func (s *Store) CountExcused(ctx context.Context, studentID reconcile.StudentID, from, to billing.Date) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance
		WHERE student_id = ? AND status = 'excused'
		  AND class_date BETWEEN ? AND ?
	`, string(studentID), from.String(), to.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count excused absences: %w", err)
	}
	return count, nil
}

func (s *Store) CountMakeup(ctx context.Context, studentID reconcile.StudentID, from, to billing.Date) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Both makeup signals: the explicit flag and the legacy notes marker.
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance
		WHERE student_id = ?
		  AND status IN ('present', 'late')
		  AND (is_makeup = 1 OR notes LIKE ?)
		  AND class_date BETWEEN ? AND ?
	`, string(studentID), "%"+reconcile.LegacyMakeupMarker+"%", from.String(), to.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count makeup classes: %w", err)
	}
	return count, nil
}

func (s *Store) ExcusedCreditExists(ctx context.Context, studentID reconcile.StudentID, academyID reconcile.AcademyID, label string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM credits
		WHERE student_id = ? AND academy_id = ? AND credit_type = ?
		  AND (period_label = ? OR description LIKE ?)
	`, string(studentID), string(academyID), string(reconcile.CreditExcused),
		label, "%"+label+"%").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existing credit: %w", err)
	}
	return count > 0, nil
}

func (s *Store) InsertCredit(ctx context.Context, credit reconcile.CreditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credits
		(id, student_id, academy_id, credit_type, credit_amount, remaining_amount,
		 status, period_start, period_end, period_label, rest_days, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		credit.ID,
		string(credit.StudentID),
		string(credit.AcademyID),
		string(credit.Type),
		credit.Amount,
		credit.Remaining,
		string(credit.Status),
		credit.PeriodStart.String(),
		credit.PeriodEnd.String(),
		credit.PeriodLabel,
		credit.Days,
		credit.Description,
		credit.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return reconcile.ErrDuplicateCredit
		}
		return fmt.Errorf("failed to insert credit: %w", err)
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, run reconcile.SettlementRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt sql.NullString
	if run.CompletedAt != nil {
		completedAt = sql.NullString{String: run.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlement_runs
		(id, academy_id, period_label, status, students_processed, credits_issued,
		 total_credited, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			students_processed = excluded.students_processed,
			credits_issued = excluded.credits_issued,
			total_credited = excluded.total_credited,
			error = excluded.error,
			completed_at = excluded.completed_at
	`,
		run.ID,
		string(run.AcademyID),
		run.PeriodLabel,
		run.Status,
		run.StudentsProcessed,
		run.CreditsIssued,
		run.TotalCredited,
		run.Error,
		run.StartedAt.UTC().Format(time.RFC3339),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save settlement run: %w", err)
	}
	return nil
}

// =============================================================================
// READ SURFACE (API layer)
// =============================================================================

// ListCredits returns a student's credits, newest first.
func (s *Store) ListCredits(ctx context.Context, studentID reconcile.StudentID) ([]reconcile.CreditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, academy_id, credit_type, credit_amount, remaining_amount,
		       status, period_start, period_end, period_label, rest_days, description, created_at
		FROM credits
		WHERE student_id = ?
		ORDER BY created_at DESC
	`, string(studentID))
	if err != nil {
		return nil, fmt.Errorf("failed to list credits: %w", err)
	}
	defer rows.Close()

	var credits []reconcile.CreditRecord
	for rows.Next() {
		var (
			c                                reconcile.CreditRecord
			studentID, academyID, creditType string
			status, start, end, createdAt    string
		)
		if err := rows.Scan(&c.ID, &studentID, &academyID, &creditType, &c.Amount, &c.Remaining,
			&status, &start, &end, &c.PeriodLabel, &c.Days, &c.Description, &createdAt); err != nil {
			return nil, err
		}
		c.StudentID = reconcile.StudentID(studentID)
		c.AcademyID = reconcile.AcademyID(academyID)
		c.Type = reconcile.CreditType(creditType)
		c.Status = reconcile.CreditStatus(status)
		if c.PeriodStart, err = parseStoredDate(start); err != nil {
			return nil, err
		}
		if c.PeriodEnd, err = parseStoredDate(end); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			c.CreatedAt = t
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// ListRuns returns the most recent settlement runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]reconcile.SettlementRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, academy_id, period_label, status, students_processed, credits_issued,
		       total_credited, error, started_at, completed_at
		FROM settlement_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement runs: %w", err)
	}
	defer rows.Close()

	var runs []reconcile.SettlementRun
	for rows.Next() {
		var (
			r                    reconcile.SettlementRun
			academyID, startedAt string
			completedAt          sql.NullString
		)
		if err := rows.Scan(&r.ID, &academyID, &r.PeriodLabel, &r.Status, &r.StudentsProcessed,
			&r.CreditsIssued, &r.TotalCredited, &r.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.AcademyID = reconcile.AcademyID(academyID)
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			r.StartedAt = t
		}
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
				r.CompletedAt = &t
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// FIXTURES (tests, seeding; production writes come from the CRUD layer)
// =============================================================================

// InsertStudent persists a student row.
func (s *Store) InsertStudent(ctx context.Context, student reconcile.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := "active"
	if !student.Active {
		status = "inactive"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, academy_id, name, monthly_tuition, class_days, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(student.ID),
		string(student.AcademyID),
		student.Name,
		student.MonthlyTuition,
		student.ClassDays.String(),
		status,
		student.CreatedAt.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

// InsertAttendance persists an attendance row.
func (s *Store) InsertAttendance(ctx context.Context, id string, r reconcile.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	makeup := 0
	if r.Makeup {
		makeup = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (id, student_id, class_date, status, is_makeup, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		string(r.StudentID),
		r.Date.String(),
		string(r.Status),
		makeup,
		r.Notes,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert attendance: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// parseStoredDate accepts both bare dates and RFC3339 timestamps.
func parseStoredDate(s string) (billing.Date, error) {
	if len(s) > 10 {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return billing.DateOf(t), nil
		}
		s = s[:10]
	}
	return billing.ParseDate(s)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
