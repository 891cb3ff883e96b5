// Package store provides reconcile.Store implementations.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/paca/billing-engine/billing"
	"github.com/paca/billing-engine/reconcile"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	students   map[reconcile.AcademyID][]reconcile.Student
	attendance map[reconcile.StudentID][]reconcile.AttendanceRecord
	credits    []reconcile.CreditRecord
	runs       map[string]reconcile.SettlementRun
}

func NewMemory() *Memory {
	return &Memory{
		students:   make(map[reconcile.AcademyID][]reconcile.Student),
		attendance: make(map[reconcile.StudentID][]reconcile.AttendanceRecord),
		runs:       make(map[string]reconcile.SettlementRun),
	}
}

// =============================================================================
// SEEDING (tests and local dev)
// =============================================================================

// AddStudent registers a student under their academy.
func (m *Memory) AddStudent(s reconcile.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.AcademyID] = append(m.students[s.AcademyID], s)
}

// AddAttendance records an attendance row.
func (m *Memory) AddAttendance(r reconcile.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[r.StudentID] = append(m.attendance[r.StudentID], r)
}

// Credits returns a copy of all inserted credits.
func (m *Memory) Credits() []reconcile.CreditRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]reconcile.CreditRecord, len(m.credits))
	copy(out, m.credits)
	return out
}

// Runs returns all persisted settlement runs.
func (m *Memory) Runs() []reconcile.SettlementRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]reconcile.SettlementRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out
}

// =============================================================================
// reconcile.Store
// =============================================================================

func (m *Memory) ListAcademies(_ context.Context) ([]reconcile.AcademyID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]reconcile.AcademyID, 0, len(m.students))
	for id := range m.students {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) ListEligibleStudents(_ context.Context, academyID reconcile.AcademyID, monthStart billing.Date) ([]reconcile.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var eligible []reconcile.Student
	for _, s := range m.students[academyID] {
		if !s.Active || s.MonthlyTuition <= 0 || s.ClassDays.IsEmpty() {
			continue
		}
		if !s.CreatedAt.Before(monthStart) {
			continue
		}
		eligible = append(eligible, s)
	}
	return eligible, nil
}

func (m *Memory) CountExcused(_ context.Context, studentID reconcile.StudentID, from, to billing.Date) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.attendance[studentID] {
		if r.Status == reconcile.StatusExcused && inRange(r.Date, from, to) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) CountMakeup(_ context.Context, studentID reconcile.StudentID, from, to billing.Date) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.attendance[studentID] {
		if r.IsMakeup() && inRange(r.Date, from, to) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) ExcusedCreditExists(_ context.Context, studentID reconcile.StudentID, academyID reconcile.AcademyID, label string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.credits {
		if c.StudentID == studentID && c.AcademyID == academyID && c.Type == reconcile.CreditExcused &&
			(c.PeriodLabel == label || strings.Contains(c.Description, label)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) InsertCredit(_ context.Context, credit reconcile.CreditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.credits {
		if c.StudentID == credit.StudentID && c.AcademyID == credit.AcademyID &&
			c.Type == credit.Type && c.PeriodLabel == credit.PeriodLabel {
			return reconcile.ErrDuplicateCredit
		}
	}
	m.credits = append(m.credits, credit)
	return nil
}

func (m *Memory) SaveRun(_ context.Context, run reconcile.SettlementRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func inRange(d, from, to billing.Date) bool {
	return d.AfterOrEqual(from) && d.BeforeOrEqual(to)
}
