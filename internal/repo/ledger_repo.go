package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/listing"
	"github.com/gsmwallet/server/internal/model"
)

var ErrEntryNotFound = errors.New("ledger entry not found")

var entryColumns = map[string]string{
	"id":            "id",
	"customerId":    "customer_id",
	"amount":        "amount",
	"balanceBefore": "balance_before",
	"balanceAfter":  "balance_after",
	"occurredAt":    "occurred_at",
	"status":        "status",
}

const entrySelect = `
	SELECT id, customer_id, parent_id, kind, amount, balance_before, balance_after, occurred_at, originator, status
	FROM ledger_entries`

// LedgerRepo is the append-only store of ledger entries. Status is the only mutable column.
type LedgerRepo interface {
	Append(ctx context.Context, e *model.LedgerEntry) error
	LatestPurchase(ctx context.Context, customerID uuid.UUID) (model.LedgerEntry, error)
	RefundedTotal(ctx context.Context, purchaseID uuid.UUID) (decimal.Decimal, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.EntryStatus) error
	ListByStatus(ctx context.Context, status model.EntryStatus, limit int) ([]model.LedgerEntry, error)
	ChainedAfter(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error)
	List(ctx context.Context, kind model.TransactionKind, q listing.Query) ([]model.LedgerEntry, int, error)
}

type ledgerRepo struct {
	db *pgxpool.Pool
}

// NewLedgerRepo creates a new LedgerRepo backed by a pgx pool.
func NewLedgerRepo(db *pgxpool.Pool) LedgerRepo {
	return &ledgerRepo{db: db}
}

func scanEntry(row pgx.Row) (model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(&e.ID, &e.CustomerID, &e.ParentID, &e.Kind, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.OccurredAt, &e.Originator, &e.Status)
	return e, err
}

// Append inserts e. An id is generated when e.ID is zero.
func (r *ledgerRepo) Append(ctx context.Context, e *model.LedgerEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO ledger_entries (id, customer_id, parent_id, kind, amount, balance_before, balance_after, occurred_at, originator, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.CustomerID, e.ParentID, string(e.Kind), e.Amount, e.BalanceBefore, e.BalanceAfter, e.OccurredAt, string(e.Originator), string(e.Status))
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// LatestPurchase returns the customer's most recent purchase that was not voided.
func (r *ledgerRepo) LatestPurchase(ctx context.Context, customerID uuid.UUID) (model.LedgerEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, entrySelect+`
		WHERE customer_id = $1 AND kind = 'purchase' AND status <> 'void'
		ORDER BY occurred_at DESC, seq DESC
		LIMIT 1`, customerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.LedgerEntry{}, ErrEntryNotFound
		}
		return model.LedgerEntry{}, fmt.Errorf("query latest purchase: %w", err)
	}
	return e, nil
}

// RefundedTotal sums non-void refunds recorded against a purchase.
func (r *ledgerRepo) RefundedTotal(ctx context.Context, purchaseID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE parent_id = $1 AND kind = 'refund' AND status <> 'void'
	`, purchaseID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum refunds: %w", err)
	}
	return total, nil
}

// SetStatus moves an entry to a new saga status.
func (r *ledgerRepo) SetStatus(ctx context.Context, id uuid.UUID, status model.EntryStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE ledger_entries SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListByStatus returns up to limit entries in status, oldest first.
func (r *ledgerRepo) ListByStatus(ctx context.Context, status model.EntryStatus, limit int) ([]model.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, entrySelect+`
		WHERE status = $1
		ORDER BY occurred_at ASC, seq ASC
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger by status: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ChainedAfter returns the first non-void entry for e's customer, appended after e,
// that started from e's balanceAfter. ErrEntryNotFound means nothing built on e.
func (r *ledgerRepo) ChainedAfter(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	next, err := scanEntry(r.db.QueryRow(ctx, entrySelect+`
		WHERE customer_id = $1
		  AND status <> 'void'
		  AND balance_before = $3
		  AND seq > (SELECT seq FROM ledger_entries WHERE id = $2)
		ORDER BY seq ASC
		LIMIT 1`, e.CustomerID, e.ID, e.BalanceAfter))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.LedgerEntry{}, ErrEntryNotFound
		}
		return model.LedgerEntry{}, fmt.Errorf("query chained entry: %w", err)
	}
	return next, nil
}

// List returns one page of entries of kind and the total count.
func (r *ledgerRepo) List(ctx context.Context, kind model.TransactionKind, q listing.Query) ([]model.LedgerEntry, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE kind = $1`, string(kind)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	rows, err := r.db.Query(ctx, entrySelect+`
		WHERE kind = $1 `+q.OrderBy(entryColumns)+`
		LIMIT $2 OFFSET $3`, string(kind), q.Limit(), q.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func collectEntries(rows pgx.Rows) ([]model.LedgerEntry, error) {
	entries := make([]model.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
