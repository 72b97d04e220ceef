package ledger

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// DefaultReconcileSchedule runs reconciliation every minute.
const DefaultReconcileSchedule = "@every 1m"

// Scheduler runs reconciliation on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	schedule   string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(reconciler *Reconciler, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	cronLogger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:       c,
		reconciler: reconciler,
		schedule:   schedule,
	}
}

// Start registers the reconciliation job and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.reconcile); err != nil {
		return err
	}
	log.Printf("level=info component=scheduler msg=\"scheduled reconciliation\" schedule=%q", s.schedule)
	s.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once a running pass finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) reconcile() {
	if _, err := s.reconciler.RunOnce(context.Background()); err != nil {
		log.Printf("level=error component=scheduler msg=\"reconciliation failed\" err=%v", err)
	}
}
