// Package directory is the ledger service's view of the customer service:
// lookup by GSM number and compare-and-swap balance updates.
package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/model"
)

var (
	ErrNotFound = errors.New("customer not found")
	// ErrConflict means the stored balance no longer equals the expected one.
	ErrConflict = errors.New("balance changed concurrently")
)

// CustomerDirectory is the source of truth for customer identity and balance.
type CustomerDirectory interface {
	LookupByPhone(ctx context.Context, phone string) (model.Customer, error)
	Get(ctx context.Context, customerID uuid.UUID) (model.Customer, error)
	// UpdateBalance writes balance only if the current value equals expected.
	UpdateBalance(ctx context.Context, customerID uuid.UUID, expected, balance decimal.Decimal) error
}

// BalanceUpdate is the wire body of PUT /internal/customers/{id}/balance.
type BalanceUpdate struct {
	ExpectedBalance decimal.Decimal `json:"expectedBalance"`
	Balance         decimal.Decimal `json:"balance"`
}
