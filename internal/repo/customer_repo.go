package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/listing"
	"github.com/gsmwallet/server/internal/model"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrBalanceMismatch is returned by UpdateBalance when the stored balance is not the expected one.
	ErrBalanceMismatch = errors.New("balance does not match expected value")
)

var customerColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"surname":   "surname",
	"birthdate": "birthdate",
	"gsmNumber": "gsm_number",
	"balance":   "balance",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const customerSelect = `SELECT id, name, surname, birthdate, gsm_number, balance, created_at, updated_at FROM customers`

// CustomerRepo defines the interface for customer repository operations
type CustomerRepo interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (model.Customer, error)
	GetByPhone(ctx context.Context, phone string) (model.Customer, error)
	List(ctx context.Context, q listing.Query) ([]model.Customer, int, error)
	Update(ctx context.Context, c *model.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateBalance(ctx context.Context, id uuid.UUID, expected, balance decimal.Decimal) error
}

type customerRepo struct {
	db *sql.DB
}

// NewCustomerRepo creates a new CustomerRepo instance
func NewCustomerRepo(db *sql.DB) CustomerRepo {
	return &customerRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Surname, &c.Birthdate, &c.GsmNumber, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a customer and fills in its id and created_at.
func (r *customerRepo) Create(ctx context.Context, c *model.Customer) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, surname, birthdate, gsm_number, balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, c.Name, c.Surname, c.Birthdate, c.GsmNumber, c.Balance).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// GetByID retrieves a customer by ID
func (r *customerRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, customerSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Customer{}, ErrCustomerNotFound
		}
		return model.Customer{}, fmt.Errorf("failed to query customer: %w", err)
	}
	return c, nil
}

// GetByPhone returns the most recently created customer with the given GSM number.
func (r *customerRepo) GetByPhone(ctx context.Context, phone string) (model.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx,
		customerSelect+` WHERE gsm_number = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Customer{}, ErrCustomerNotFound
		}
		return model.Customer{}, fmt.Errorf("failed to query customer by phone: %w", err)
	}
	return c, nil
}

// List returns one page of customers and the total count.
func (r *customerRepo) List(ctx context.Context, q listing.Query) ([]model.Customer, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		customerSelect+" "+q.OrderBy(customerColumns)+` LIMIT $1 OFFSET $2`, q.Limit(), q.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]model.Customer, 0, q.Limit())
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate customers: %w", err)
	}
	return customers, total, nil
}

// Update overwrites the mutable fields of a customer, including balance.
func (r *customerRepo) Update(ctx context.Context, c *model.Customer) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, surname = $3, birthdate = $4, gsm_number = $5, balance = $6, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Surname, c.Birthdate, c.GsmNumber, c.Balance).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

// Delete removes a customer.
func (r *customerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// UpdateBalance sets the balance only if it still equals expected.
func (r *customerRepo) UpdateBalance(ctx context.Context, id uuid.UUID, expected, balance decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET balance = $3, updated_at = now()
		WHERE id = $1 AND balance = $2
	`, id, expected, balance)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check customer: %w", err)
	}
	if !exists {
		return ErrCustomerNotFound
	}
	return ErrBalanceMismatch
}
