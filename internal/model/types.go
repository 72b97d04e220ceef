package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a subscriber record owned by the customer service.
type Customer struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Surname   string          `json:"surname"`
	Birthdate string          `json:"birthdate,omitempty"`
	GsmNumber string          `json:"gsmNumber"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// OtpChallenge is one issued one-time passcode for a phone number.
// Only the most recently created challenge per phone number is ever consulted.
type OtpChallenge struct {
	ID           uuid.UUID
	PhoneNumber  string
	Code         int
	ExpiresAt    time.Time
	AttemptCount int
	Blocked      bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase"
	KindRefund   TransactionKind = "refund"
	KindTopUp    TransactionKind = "top_up"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindPurchase, KindRefund, KindTopUp:
		return true
	}
	return false
}

// Originator records who initiated a ledger entry.
type Originator string

const (
	OriginatorSystem   Originator = "system"
	OriginatorCustomer Originator = "customer"
)

// EntryStatus tracks a ledger entry through the ledger-then-balance saga.
type EntryStatus string

const (
	// StatusPending is set on append, before the balance push.
	StatusPending EntryStatus = "pending"
	// StatusConfirmed means the directory holds BalanceAfter.
	StatusConfirmed EntryStatus = "confirmed"
	// StatusUnconfirmed means the balance push failed; reconciliation must decide.
	StatusUnconfirmed EntryStatus = "unconfirmed"
	// StatusVoid means the entry was never reflected in the directory.
	StatusVoid EntryStatus = "void"
)

// LedgerEntry is an immutable record of one balance-affecting event.
// Status is the only field that changes after append.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customerId"`
	ParentID      *uuid.UUID      `json:"parentId,omitempty"`
	Kind          TransactionKind `json:"transactionKind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Originator    Originator      `json:"originator"`
	Status        EntryStatus     `json:"status"`
}
