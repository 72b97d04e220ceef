package ledger

import (
	"errors"

	"github.com/gsmwallet/server/internal/model"
)

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	// ErrInternalConsistency covers states the ledger should never reach, such as a refund with no purchase.
	ErrInternalConsistency = errors.New("ledger internal consistency fault")
	// ErrBalanceConflict means the directory balance moved between read and write; the entry was voided.
	ErrBalanceConflict = errors.New("balance changed, please retry")
	// ErrBalancePushFailed means the entry is unconfirmed and awaits reconciliation.
	ErrBalancePushFailed = errors.New("balance push failed")
)

// AmountError rejects an amount with a per-variant message.
type AmountError struct {
	Kind    model.TransactionKind
	Message string
}

func (e *AmountError) Error() string { return e.Message }

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

func invalidAmount(kind model.TransactionKind) error {
	var msg string
	switch kind {
	case model.KindPurchase:
		msg = "Invalid amount for Purchase."
	case model.KindRefund:
		msg = "Invalid amount for refund."
	case model.KindTopUp:
		msg = "Invalid amount for TopUp."
	default:
		msg = "Invalid amount."
	}
	return &AmountError{Kind: kind, Message: msg}
}
