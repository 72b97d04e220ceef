package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gsmwallet/server/internal/clock"
	"github.com/gsmwallet/server/internal/directory"
	"github.com/gsmwallet/server/internal/model"
	"github.com/gsmwallet/server/internal/repo"
)

const (
	DefaultReconcileBatch = 100
	// DefaultPendingGrace is how long a pending entry may sit before it is treated as abandoned.
	DefaultPendingGrace = time.Minute
)

// Report summarises one reconciliation pass.
type Report struct {
	Scanned   int
	Confirmed int
	Voided    int
	// Held counts entries left for an operator because no outcome could be proven.
	Held   int
	Failed int
}

// Reconciler settles entries whose balance push did not complete. An entry is confirmed
// when the directory holds its balanceAfter or a later entry started from it, and voided
// when the directory still holds its balanceBefore. Nothing is re-pushed.
type Reconciler struct {
	entries   repo.LedgerRepo
	customers directory.CustomerDirectory
	clock     clock.Clock
	batch     int
	grace     time.Duration
}

// NewReconciler creates a new reconciler
func NewReconciler(entries repo.LedgerRepo, customers directory.CustomerDirectory, batch int) *Reconciler {
	if batch <= 0 {
		batch = DefaultReconcileBatch
	}
	return &Reconciler{
		entries:   entries,
		customers: customers,
		clock:     clock.System,
		batch:     batch,
		grace:     DefaultPendingGrace,
	}
}

// WithClock overrides the time source used for the pending grace period.
func (r *Reconciler) WithClock(c clock.Clock) *Reconciler {
	r.clock = c
	return r
}

// RunOnce reconciles up to one batch of unconfirmed entries and one batch of stale pending entries.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	unconfirmed, err := r.entries.ListByStatus(ctx, model.StatusUnconfirmed, r.batch)
	if err != nil {
		return report, fmt.Errorf("list unconfirmed: %w", err)
	}
	pending, err := r.entries.ListByStatus(ctx, model.StatusPending, r.batch)
	if err != nil {
		return report, fmt.Errorf("list pending: %w", err)
	}

	cutoff := r.clock.Now().Add(-r.grace)
	candidates := unconfirmed
	for _, e := range pending {
		if e.OccurredAt.Before(cutoff) {
			candidates = append(candidates, e)
		}
	}

	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		status, err := r.resolve(ctx, e)
		if err != nil {
			report.Failed++
			log.Printf("level=warn component=reconciler msg=\"resolve failed\" entry_id=%s err=%v", e.ID, err)
			continue
		}
		if status == e.Status {
			report.Held++
			continue
		}
		if err := r.entries.SetStatus(ctx, e.ID, status); err != nil {
			report.Failed++
			log.Printf("level=error component=reconciler msg=\"status update failed\" entry_id=%s err=%v", e.ID, err)
			continue
		}
		switch status {
		case model.StatusConfirmed:
			report.Confirmed++
		case model.StatusVoid:
			report.Voided++
		}
	}

	if report.Scanned > 0 {
		log.Printf("level=info component=reconciler msg=\"pass complete\" scanned=%d confirmed=%d voided=%d held=%d failed=%d",
			report.Scanned, report.Confirmed, report.Voided, report.Held, report.Failed)
	}
	return report, nil
}

func (r *Reconciler) resolve(ctx context.Context, e model.LedgerEntry) (model.EntryStatus, error) {
	customer, err := r.customers.Get(ctx, e.CustomerID)
	if errors.Is(err, directory.ErrNotFound) {
		return model.StatusVoid, nil
	}
	if err != nil {
		return "", err
	}

	if customer.Balance.Equal(e.BalanceAfter) {
		return model.StatusConfirmed, nil
	}

	// A later entry that started from balanceAfter proves the push landed.
	_, err = r.entries.ChainedAfter(ctx, e)
	switch {
	case err == nil:
		return model.StatusConfirmed, nil
	case !errors.Is(err, repo.ErrEntryNotFound):
		return "", err
	}

	if customer.Balance.Equal(e.BalanceBefore) {
		return model.StatusVoid, nil
	}

	log.Printf("level=warn component=reconciler msg=\"balance matches neither side; held for operator review\" entry_id=%s customer_id=%s status=%s",
		e.ID, e.CustomerID, e.Status)
	return e.Status, nil
}
