package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/model"
	"github.com/gsmwallet/server/internal/repo"
)

// Local serves the directory straight from the customer repository.
// The customer service uses it behind its internal endpoints.
type Local struct {
	customers repo.CustomerRepo
}

// NewLocal creates a repository-backed directory.
func NewLocal(customers repo.CustomerRepo) *Local {
	return &Local{customers: customers}
}

func (l *Local) LookupByPhone(ctx context.Context, phone string) (model.Customer, error) {
	if strings.TrimSpace(phone) == "" {
		return model.Customer{}, ErrNotFound
	}
	c, err := l.customers.GetByPhone(ctx, phone)
	if errors.Is(err, repo.ErrCustomerNotFound) {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}

func (l *Local) Get(ctx context.Context, customerID uuid.UUID) (model.Customer, error) {
	c, err := l.customers.GetByID(ctx, customerID)
	if errors.Is(err, repo.ErrCustomerNotFound) {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}

func (l *Local) UpdateBalance(ctx context.Context, customerID uuid.UUID, expected, balance decimal.Decimal) error {
	err := l.customers.UpdateBalance(ctx, customerID, expected, balance)
	switch {
	case errors.Is(err, repo.ErrCustomerNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrBalanceMismatch):
		return ErrConflict
	}
	return err
}
