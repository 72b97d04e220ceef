package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/directory"
	"github.com/gsmwallet/server/internal/listing"
	"github.com/gsmwallet/server/internal/model"
	"github.com/gsmwallet/server/internal/repo"
)

// stubTokens accepts tokens of the form "ok:<phone>".
type stubTokens struct{}

func (stubTokens) Validate(token string) error {
	if len(token) < 3 || token[:3] != "ok:" {
		return errors.New("expired")
	}
	return nil
}

func (stubTokens) Subject(token string) string {
	if len(token) < 3 {
		return ""
	}
	return token[3:]
}

type memDirectory struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*model.Customer
	pushErr   error
	pushes    int
}

func newMemDirectory() *memDirectory {
	return &memDirectory{customers: make(map[uuid.UUID]*model.Customer)}
}

func (d *memDirectory) add(phone string, balance string) model.Customer {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &model.Customer{ID: uuid.New(), GsmNumber: phone, Balance: decimal.RequireFromString(balance)}
	d.customers[c.ID] = c
	return *c
}

func (d *memDirectory) balance(id uuid.UUID) decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.customers[id].Balance
}

func (d *memDirectory) setBalance(id uuid.UUID, v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[id].Balance = decimal.RequireFromString(v)
}

func (d *memDirectory) LookupByPhone(_ context.Context, phone string) (model.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.customers {
		if phone != "" && c.GsmNumber == phone {
			return *c, nil
		}
	}
	return model.Customer{}, directory.ErrNotFound
}

func (d *memDirectory) Get(_ context.Context, id uuid.UUID) (model.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.customers[id]
	if !ok {
		return model.Customer{}, directory.ErrNotFound
	}
	return *c, nil
}

func (d *memDirectory) UpdateBalance(_ context.Context, id uuid.UUID, expected, balance decimal.Decimal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushes++
	if d.pushErr != nil {
		return d.pushErr
	}
	c, ok := d.customers[id]
	if !ok {
		return directory.ErrNotFound
	}
	if !c.Balance.Equal(expected) {
		return directory.ErrConflict
	}
	c.Balance = balance
	return nil
}

type memLedger struct {
	mu      sync.Mutex
	entries []model.LedgerEntry
}

func (m *memLedger) Append(_ context.Context, e *model.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memLedger) LatestPurchase(_ context.Context, customerID uuid.UUID) (model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.CustomerID == customerID && e.Kind == model.KindPurchase && e.Status != model.StatusVoid {
			return e, nil
		}
	}
	return model.LedgerEntry{}, repo.ErrEntryNotFound
}

func (m *memLedger) RefundedTotal(_ context.Context, purchaseID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, e := range m.entries {
		if e.Kind == model.KindRefund && e.ParentID != nil && *e.ParentID == purchaseID && e.Status != model.StatusVoid {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (m *memLedger) SetStatus(_ context.Context, id uuid.UUID, status model.EntryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].Status = status
			return nil
		}
	}
	return repo.ErrEntryNotFound
}

func (m *memLedger) ListByStatus(_ context.Context, status model.EntryStatus, limit int) ([]model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range m.entries {
		if e.Status == status && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) ChainedAfter(_ context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := false
	for _, next := range m.entries {
		if next.ID == e.ID {
			seen = true
			continue
		}
		if seen && next.CustomerID == e.CustomerID && next.Status != model.StatusVoid && next.BalanceBefore.Equal(e.BalanceAfter) {
			return next, nil
		}
	}
	return model.LedgerEntry{}, repo.ErrEntryNotFound
}

func (m *memLedger) List(_ context.Context, kind model.TransactionKind, _ listing.Query) ([]model.LedgerEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range m.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *memLedger) all() []model.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.LedgerEntry(nil), m.entries...)
}

type recordingSink struct {
	recorded []model.LedgerEntry
}

func (r *recordingSink) EntryRecorded(_ context.Context, e model.LedgerEntry) error {
	r.recorded = append(r.recorded, e)
	return nil
}
