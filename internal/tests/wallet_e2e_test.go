package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsmwallet/server/internal/listing"
	"github.com/gsmwallet/server/internal/middleware"
	"github.com/gsmwallet/server/internal/model"
)

var internalHeader = map[string]string{middleware.InternalAPIKeyHeader: InternalAPIKey}

func (e *testEnv) createCustomer(t *testing.T, phone, balance string) model.Customer {
	t.Helper()
	body := `{"name":"Aysel","surname":"Mammadova","birthdate":"1990-04-12","gsmNumber":"` + phone + `","balance":` + balance + `}`
	status, resp := call(t, http.MethodPost, e.Customers.URL+"/api/customers",
		map[string]string{middleware.InternalAPIKeyHeader: InternalAPIKey, "Content-Type": "application/json"}, body)
	require.Equal(t, http.StatusCreated, status, "create customer; body: %s", resp)
	var c model.Customer
	require.NoError(t, json.Unmarshal([]byte(resp), &c))
	return c
}

func (e *testEnv) login(t *testing.T, phone string) map[string]string {
	t.Helper()
	status, token := e.verifyOTP(t, phone, e.requestOTP(t, phone))
	require.Equal(t, http.StatusOK, status, "verify-otp; body: %s", token)
	return map[string]string{"Authorization": "Bearer " + token}
}

func (e *testEnv) balance(t *testing.T, phone string) decimal.Decimal {
	t.Helper()
	status, body := call(t, http.MethodGet, e.Customers.URL+"/internal/customers/by-gsm/"+phone, internalHeader, "")
	require.Equal(t, http.StatusOK, status, body)
	var c model.Customer
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	return c.Balance
}

type entryRow struct {
	Kind   string
	Before decimal.Decimal
	After  decimal.Decimal
	Status string
	Parent bool
}

func (e *testEnv) entries(t *testing.T) []entryRow {
	t.Helper()
	rows, err := e.Pool.Query(context.Background(),
		`SELECT kind, balance_before::text, balance_after::text, status, parent_id IS NOT NULL FROM ledger_entries ORDER BY seq`)
	require.NoError(t, err)
	defer rows.Close()

	var out []entryRow
	for rows.Next() {
		var r entryRow
		var before, after string
		require.NoError(t, rows.Scan(&r.Kind, &before, &after, &r.Status, &r.Parent))
		r.Before = decimal.RequireFromString(before)
		r.After = decimal.RequireFromString(after)
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestWalletE2E(t *testing.T) {
	env := newTestEnv(t)
	env.createCustomer(t, testGsm, "200")
	bearer := env.login(t, testGsm)

	t.Run("A_Purchase", func(t *testing.T) {
		status, body := call(t, http.MethodPost, env.Ledger.URL+"/purchases/make-purchase?amount=50", bearer, "")
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "Purchase successful. New balance: 150.00", body)
		assert.True(t, env.balance(t, testGsm).Equal(decimal.NewFromInt(150)))

		rows := env.entries(t)
		require.Len(t, rows, 1)
		assert.Equal(t, string(model.KindPurchase), rows[0].Kind)
		assert.True(t, rows[0].Before.Equal(decimal.NewFromInt(200)))
		assert.True(t, rows[0].After.Equal(decimal.NewFromInt(150)))
		assert.Equal(t, string(model.StatusConfirmed), rows[0].Status)
	})

	t.Run("B_RejectedAmountsLeaveNoEntry", func(t *testing.T) {
		status, body := call(t, http.MethodPost, env.Ledger.URL+"/purchases/make-purchase?amount=150.01", bearer, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid amount for Purchase.", body)

		status, body = call(t, http.MethodPost, env.Ledger.URL+"/top-ups/add-funds?amount=1000.01", bearer, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid amount for TopUp.", body)

		status, body = call(t, http.MethodPost, env.Ledger.URL+"/refunds/make-refund?amount=5", bearer, "")
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "Invalid amount for refund.", body)

		assert.Len(t, env.entries(t), 1)
	})

	t.Run("C_RefundAndTopUp", func(t *testing.T) {
		status, body := call(t, http.MethodPost, env.Ledger.URL+"/refunds/make-refund?amount=0.01", bearer, "")
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "Refund successful. Refund transaction: 0.01", body)

		status, body = call(t, http.MethodPost, env.Ledger.URL+"/top-ups/add-funds?amount=1000", bearer, "")
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "Fund successful. New balance: 1149.99", body)

		rows := env.entries(t)
		require.Len(t, rows, 3)
		assert.Equal(t, string(model.KindRefund), rows[1].Kind)
		assert.True(t, rows[1].Parent)
		assert.Equal(t, string(model.KindTopUp), rows[2].Kind)
		assert.False(t, rows[2].Parent)
	})

	t.Run("D_Listings", func(t *testing.T) {
		for path, want := range map[string]int{"/purchases": 1, "/refunds": 1, "/top-ups": 1} {
			status, _ := call(t, http.MethodGet, env.Ledger.URL+path, nil, "")
			require.Equal(t, http.StatusUnauthorized, status, "listings need the internal key")

			status, body := call(t, http.MethodGet, env.Ledger.URL+path, internalHeader, "")
			require.Equal(t, http.StatusOK, status, body)
			var page listing.Page[model.LedgerEntry]
			require.NoError(t, json.Unmarshal([]byte(body), &page))
			assert.Equal(t, want, page.TotalCount, path)
		}
	})

	t.Run("E_TokenAndCustomerErrors", func(t *testing.T) {
		status, body := call(t, http.MethodPost, env.Ledger.URL+"/purchases/make-purchase?amount=1",
			map[string]string{"Authorization": "Bearer garbage"}, "")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Token has expired.", body)

		// A valid token for a phone with no customer record.
		stranger := env.login(t, "994519998877")
		status, body = call(t, http.MethodPost, env.Ledger.URL+"/purchases/make-purchase?amount=1", stranger, "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Customer not found.", body)
	})
}
