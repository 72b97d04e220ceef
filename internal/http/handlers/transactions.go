package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/ledger"
	"github.com/gsmwallet/server/internal/listing"
	"github.com/gsmwallet/server/internal/middleware"
	"github.com/gsmwallet/server/internal/model"
	"github.com/gsmwallet/server/internal/repo"
)

// Transactor runs the three ledger flows.
type Transactor interface {
	Purchase(ctx context.Context, token string, amount decimal.Decimal) (string, error)
	Refund(ctx context.Context, token string, amount decimal.Decimal) (string, error)
	TopUp(ctx context.Context, token string, amount decimal.Decimal) (string, error)
}

type transactFunc func(ctx context.Context, token string, amount decimal.Decimal) (string, error)

// TransactionHandler serves the purchase, refund and top-up endpoints and their listings.
type TransactionHandler struct {
	orchestrator Transactor
	entries      repo.LedgerRepo
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(orchestrator Transactor, entries repo.LedgerRepo) *TransactionHandler {
	return &TransactionHandler{orchestrator: orchestrator, entries: entries}
}

// HandlePurchase handles POST /purchases/make-purchase?amount=...
func (h *TransactionHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	h.transact(w, r, h.orchestrator.Purchase, http.StatusBadRequest)
}

// HandleRefund handles POST /refunds/make-refund?amount=...
// Invalid refund amounts answer 422, unlike the other two flows.
func (h *TransactionHandler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	h.transact(w, r, h.orchestrator.Refund, http.StatusUnprocessableEntity)
}

// HandleTopUp handles POST /top-ups/add-funds?amount=...
func (h *TransactionHandler) HandleTopUp(w http.ResponseWriter, r *http.Request) {
	h.transact(w, r, h.orchestrator.TopUp, http.StatusBadRequest)
}

func (h *TransactionHandler) transact(w http.ResponseWriter, r *http.Request, run transactFunc, invalidAmountStatus int) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.URL.Query().Get("amount")))
	if err != nil {
		respondText(w, http.StatusBadRequest, "Invalid amount.")
		return
	}

	msg, err := run(r.Context(), middleware.BearerToken(r), amount)
	if err != nil {
		status, body := transactionError(err, invalidAmountStatus)
		if status >= http.StatusInternalServerError {
			log.Printf("level=error component=http msg=\"transaction failed\" path=%s err=%v", r.URL.Path, err)
		}
		respondText(w, status, body)
		return
	}
	respondText(w, http.StatusOK, msg)
}

// transactionError maps ledger errors to a status and a client-safe message.
func transactionError(err error, invalidAmountStatus int) (int, string) {
	var amountErr *ledger.AmountError
	switch {
	case errors.Is(err, ledger.ErrTokenExpired):
		return http.StatusUnauthorized, "Token has expired."
	case errors.Is(err, ledger.ErrCustomerNotFound):
		return http.StatusNotFound, "Customer not found."
	case errors.As(err, &amountErr):
		return invalidAmountStatus, amountErr.Message
	case errors.Is(err, ledger.ErrBalanceConflict):
		return http.StatusConflict, "Balance changed, please retry."
	default:
		return http.StatusInternalServerError, "An error occurred."
	}
}

// kindLister narrows the ledger listing to one transaction kind.
type kindLister struct {
	entries repo.LedgerRepo
	kind    model.TransactionKind
}

func (k kindLister) List(ctx context.Context, q listing.Query) ([]model.LedgerEntry, int, error) {
	return k.entries.List(ctx, k.kind, q)
}

// ListHandler returns GET handler for entries of kind.
func (h *TransactionHandler) ListHandler(kind model.TransactionKind) http.HandlerFunc {
	l := kindLister{entries: h.entries, kind: kind}
	return func(w http.ResponseWriter, r *http.Request) {
		handleList[model.LedgerEntry](w, r, l)
	}
}
