/*
scheduler.go - Daily settlement trigger

PURPOSE:
  Fires the monthly settlement automatically. Cron grammar cannot express
  "last day of month" directly, so the job runs once every day at a fixed
  local hour and acts only when tomorrow is the 1st - the same daily-poll-
  with-guard the billing team has always operated.

CONFIGURATION:
  - Location: the academy's time zone (default Asia/Seoul)
  - Hour:     local hour of the daily trigger (default 23)
  - Timeout:  per-sweep context deadline so a stuck store call cannot hang
              the host process (default 10 minutes)

FAILURE SEMANTICS:
  A failed sweep is logged and NOT retried immediately; the next scheduled
  invocation (next month's last day, or a manual RunNow) picks it up.

USAGE:
  sched := reconcile.NewScheduler(reconciler, loc)
  if err := sched.Start(); err != nil { ... }
  defer sched.Stop()

SEE ALSO:
  - reconciler.go: the sweep this schedules
  - api: manual trigger endpoint (RunNow)
*/
package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paca/billing-engine/billing"
)

const defaultSweepTimeout = 10 * time.Minute

// Scheduler triggers the monthly settlement on the last day of each month.
type Scheduler struct {
	Reconciler *Reconciler
	Location   *time.Location
	Hour       int
	Timeout    time.Duration
	Enabled    bool

	cron *cron.Cron
	now  func() time.Time
	mu   sync.Mutex
}

// NewScheduler creates a scheduler firing daily at 23:00 in loc.
func NewScheduler(reconciler *Reconciler, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Reconciler: reconciler,
		Location:   loc,
		Hour:       23,
		Timeout:    defaultSweepTimeout,
		Enabled:    true,
		now:        time.Now,
	}
}

// Start begins the daily cron trigger.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(s.Location))
	spec := fmt.Sprintf("0 %d * * *", s.Hour)
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("failed to schedule settlement job: %w", err)
	}
	c.Start()
	s.cron = c

	log.Printf("[Scheduler] Started - daily at %02d:00 %s, acting on the last day of each month", s.Hour, s.Location)
	return nil
}

// Stop stops the trigger and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
		log.Println("[Scheduler] Stopped")
	}
}

// tick is the daily job body: act only on the month's last day.
func (s *Scheduler) tick() {
	today := s.now().In(s.Location)
	if !billing.IsLastDayOfMonth(today) {
		return
	}

	log.Printf("[Scheduler] Last day of month (%s), running settlement", today.Format("2006-01-02"))

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	if _, err := s.Reconciler.SettleMonth(ctx, MonthOf(today)); err != nil {
		// No immediate retry; the next scheduled invocation retries.
		log.Printf("[Scheduler] Settlement failed: %v", err)
	}
}

// RunNow triggers a settlement for the given month immediately (manual
// reruns and tests). Safe to call concurrently with the scheduled sweep:
// per-student idempotency makes the overlap a no-op.
func (s *Scheduler) RunNow(ctx context.Context, month SettlementMonth) (*SettlementReport, error) {
	return s.Reconciler.SettleMonth(ctx, month)
}
