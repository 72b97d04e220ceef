// Package ledger records purchases, refunds and top-ups against balances held by the customer directory.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/auth"
	"github.com/gsmwallet/server/internal/clock"
	"github.com/gsmwallet/server/internal/directory"
	"github.com/gsmwallet/server/internal/model"
	"github.com/gsmwallet/server/internal/repo"
)

// TokenValidator checks bearer tokens and extracts their subject phone number.
type TokenValidator interface {
	Validate(token string) error
	Subject(token string) string
}

// EventSink is notified after an entry is confirmed.
type EventSink interface {
	EntryRecorded(ctx context.Context, e model.LedgerEntry) error
}

type noopSink struct{}

func (noopSink) EntryRecorded(context.Context, model.LedgerEntry) error { return nil }

// plan is the variant-specific outcome for one request.
type plan struct {
	kind     model.TransactionKind
	parentID *uuid.UUID
	after    decimal.Decimal
	message  string
}

type planner func(ctx context.Context, customer model.Customer, amount decimal.Decimal) (plan, error)

// Orchestrator runs the purchase, refund and top-up flows. Each flow appends a pending
// entry, pushes the new balance with a compare-and-swap, then confirms the entry.
type Orchestrator struct {
	tokens       TokenValidator
	customers    directory.CustomerDirectory
	entries      repo.LedgerRepo
	events       EventSink
	clock        clock.Clock
	refundPolicy RefundPolicy
	topUpMax     decimal.Decimal
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithEvents(sink EventSink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.events = sink
		}
	}
}

func WithRefundPolicy(p RefundPolicy) Option {
	return func(o *Orchestrator) { o.refundPolicy = p }
}

func WithTopUpMax(max decimal.Decimal) Option {
	return func(o *Orchestrator) { o.topUpMax = max }
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(tokens TokenValidator, customers directory.CustomerDirectory, entries repo.LedgerRepo, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tokens:       tokens,
		customers:    customers,
		entries:      entries,
		events:       noopSink{},
		clock:        clock.System,
		refundPolicy: RefundLiteral,
		topUpMax:     DefaultTopUpMax,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Purchase debits amount. Valid amounts are 0.01 up to the current balance.
func (o *Orchestrator) Purchase(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	return o.run(ctx, token, amount, o.planPurchase)
}

// Refund records a refund against the customer's most recent purchase.
func (o *Orchestrator) Refund(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	return o.run(ctx, token, amount, o.planRefund)
}

// TopUp credits amount. Valid amounts are 0.01 up to the configured ceiling.
func (o *Orchestrator) TopUp(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	return o.run(ctx, token, amount, o.planTopUp)
}

func (o *Orchestrator) planPurchase(_ context.Context, c model.Customer, amount decimal.Decimal) (plan, error) {
	if !purchaseAllowed(amount, c.Balance) {
		return plan{}, invalidAmount(model.KindPurchase)
	}
	after := c.Balance.Sub(amount)
	return plan{
		kind:    model.KindPurchase,
		after:   after,
		message: "Purchase successful. New balance: " + FormatAmount(after),
	}, nil
}

// planRefund subtracts the refund from the balance under both policies.
func (o *Orchestrator) planRefund(ctx context.Context, c model.Customer, amount decimal.Decimal) (plan, error) {
	purchase, err := o.entries.LatestPurchase(ctx, c.ID)
	if err != nil {
		if errors.Is(err, repo.ErrEntryNotFound) {
			return plan{}, fmt.Errorf("%w: refund requested with no purchase for customer %s", ErrInternalConsistency, c.ID)
		}
		return plan{}, fmt.Errorf("load latest purchase: %w", err)
	}
	refunded, err := o.entries.RefundedTotal(ctx, purchase.ID)
	if err != nil {
		return plan{}, fmt.Errorf("load refunded total: %w", err)
	}

	remaining := purchase.Amount.Sub(refunded)
	if !refundAllowed(o.refundPolicy, amount, remaining) {
		return plan{}, invalidAmount(model.KindRefund)
	}

	parentID := purchase.ID
	return plan{
		kind:     model.KindRefund,
		parentID: &parentID,
		after:    c.Balance.Sub(amount),
		message:  "Refund successful. Refund transaction: " + FormatAmount(amount),
	}, nil
}

func (o *Orchestrator) planTopUp(_ context.Context, c model.Customer, amount decimal.Decimal) (plan, error) {
	if !topUpAllowed(amount, o.topUpMax) {
		return plan{}, invalidAmount(model.KindTopUp)
	}
	after := c.Balance.Add(amount)
	return plan{
		kind:    model.KindTopUp,
		after:   after,
		message: "Fund successful. New balance: " + FormatAmount(after),
	}, nil
}

func (o *Orchestrator) run(ctx context.Context, token string, amount decimal.Decimal, next planner) (string, error) {
	if err := o.tokens.Validate(token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}

	// An empty subject is looked up like any other and ends as not found.
	phone := o.tokens.Subject(token)
	customer, err := o.customers.LookupByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return "", ErrCustomerNotFound
		}
		return "", fmt.Errorf("lookup customer: %w", err)
	}

	p, err := next(ctx, customer, amount)
	if err != nil {
		return "", err
	}

	entry := model.LedgerEntry{
		ID:            uuid.New(),
		CustomerID:    customer.ID,
		ParentID:      p.parentID,
		Kind:          p.kind,
		Amount:        amount,
		BalanceBefore: customer.Balance,
		BalanceAfter:  p.after,
		OccurredAt:    o.clock.Now().UTC(),
		Originator:    model.OriginatorCustomer,
		Status:        model.StatusPending,
	}
	if err := o.entries.Append(ctx, &entry); err != nil {
		return "", fmt.Errorf("append ledger entry: %w", err)
	}

	if err := o.customers.UpdateBalance(ctx, customer.ID, customer.Balance, p.after); err != nil {
		switch {
		case errors.Is(err, directory.ErrConflict):
			o.settle(ctx, entry, model.StatusVoid)
			return "", ErrBalanceConflict
		case errors.Is(err, directory.ErrNotFound):
			o.settle(ctx, entry, model.StatusVoid)
			return "", ErrCustomerNotFound
		default:
			o.settle(ctx, entry, model.StatusUnconfirmed)
			return "", fmt.Errorf("%w: %v", ErrBalancePushFailed, err)
		}
	}

	// The balance is already pushed; a failed confirm is left for reconciliation.
	if o.settle(ctx, entry, model.StatusConfirmed) {
		entry.Status = model.StatusConfirmed
		if err := o.events.EntryRecorded(ctx, entry); err != nil {
			log.Printf("level=warn component=ledger msg=\"event publish failed\" entry_id=%s err=%v", entry.ID, err)
		}
	}

	log.Printf("level=info component=ledger msg=\"entry recorded\" kind=%s entry_id=%s phone=%s", entry.Kind, entry.ID, auth.MaskPhone(phone))
	return p.message, nil
}

// settle moves entry to status and reports whether the write succeeded.
func (o *Orchestrator) settle(ctx context.Context, entry model.LedgerEntry, status model.EntryStatus) bool {
	if err := o.entries.SetStatus(ctx, entry.ID, status); err != nil {
		log.Printf("level=error component=ledger msg=\"status update failed\" entry_id=%s status=%s err=%v", entry.ID, status, err)
		return false
	}
	if status != model.StatusConfirmed {
		log.Printf("level=warn component=ledger msg=\"entry not applied\" entry_id=%s kind=%s status=%s", entry.ID, entry.Kind, status)
	}
	return true
}
