package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsmwallet/server/internal/clock"
	"github.com/gsmwallet/server/internal/model"
)

const phone = "994501234567"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	orch   *Orchestrator
	dir    *memDirectory
	ledger *memLedger
	sink   *recordingSink
	clock  *clock.Fixed
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		dir:    newMemDirectory(),
		ledger: &memLedger{},
		sink:   &recordingSink{},
		clock:  &clock.Fixed{T: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	opts = append([]Option{WithClock(f.clock), WithEvents(f.sink)}, opts...)
	f.orch = NewOrchestrator(stubTokens{}, f.dir, f.ledger, opts...)
	return f
}

func TestPurchase_ConcreteScenario(t *testing.T) {
	f := newFixture()
	c := f.dir.add(phone, "200.00")

	msg, err := f.orch.Purchase(context.Background(), "ok:"+phone, d("50.00"))
	require.NoError(t, err)
	assert.Contains(t, msg, "150")
	assert.Equal(t, "Purchase successful. New balance: 150.00", msg)

	entries := f.ledger.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, model.KindPurchase, e.Kind)
	assert.True(t, e.BalanceBefore.Equal(d("200.00")))
	assert.True(t, e.BalanceAfter.Equal(d("150.00")))
	assert.Nil(t, e.ParentID)
	assert.Equal(t, model.OriginatorCustomer, e.Originator)
	assert.Equal(t, model.StatusConfirmed, e.Status)
	assert.True(t, f.dir.balance(c.ID).Equal(d("150.00")))
	require.Len(t, f.sink.recorded, 1)
}

func TestPurchase_AmountBounds(t *testing.T) {
	cases := []struct {
		amount  string
		wantErr bool
		after   string
	}{
		{"0", true, "200"},
		{"0.009", true, "200"},
		{"-5", true, "200"},
		{"200.01", true, "200"},
		{"0.015", true, "200"},
		{"0.010000001", true, "200"},
		{"199.999", true, "200"},
		{"0.01", false, "199.99"},
		{"200.00", false, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			f := newFixture()
			c := f.dir.add(phone, "200.00")
			_, err := f.orch.Purchase(context.Background(), "ok:"+phone, d(tc.amount))
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				var ae *AmountError
				require.True(t, errors.As(err, &ae))
				assert.Equal(t, "Invalid amount for Purchase.", ae.Message)
				assert.Empty(t, f.ledger.all(), "rejected amount must not append")
			} else {
				require.NoError(t, err)
			}
			assert.True(t, f.dir.balance(c.ID).Equal(d(tc.after)), "balance = %s", f.dir.balance(c.ID))
		})
	}
}

func TestTopUp_AmountBounds(t *testing.T) {
	cases := []struct {
		amount  string
		wantErr bool
	}{
		{"1000.00", false},
		{"0.01", false},
		{"1000.01", true},
		{"0", true},
		{"999.999", true},
		{"0.015", true},
	}
	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			f := newFixture()
			c := f.dir.add(phone, "10.00")
			msg, err := f.orch.TopUp(context.Background(), "ok:"+phone, d(tc.amount))
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				assert.EqualError(t, err, "Invalid amount for TopUp.")
				assert.Empty(t, f.ledger.all(), "rejected amount must not append")
				assert.True(t, f.dir.balance(c.ID).Equal(d("10.00")))
				return
			}
			require.NoError(t, err)
			want := d("10.00").Add(d(tc.amount))
			assert.True(t, f.dir.balance(c.ID).Equal(want))
			assert.Equal(t, "Fund successful. New balance: "+FormatAmount(want), msg)
			assert.Equal(t, model.KindTopUp, f.ledger.all()[0].Kind)
		})
	}
}

func TestTopUp_ConfiguredCeiling(t *testing.T) {
	f := newFixture(WithTopUpMax(d("250")))
	f.dir.add(phone, "0")

	_, err := f.orch.TopUp(context.Background(), "ok:"+phone, d("250.01"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.orch.TopUp(context.Background(), "ok:"+phone, d("250"))
	assert.NoError(t, err)
}

func purchaseFirst(t *testing.T, f *fixture, amount string) {
	t.Helper()
	_, err := f.orch.Purchase(context.Background(), "ok:"+phone, d(amount))
	require.NoError(t, err)
}

func TestRefund_LiteralPolicy(t *testing.T) {
	f := newFixture()
	c := f.dir.add(phone, "500.00")
	purchaseFirst(t, f, "100")

	_, err := f.orch.Refund(context.Background(), "ok:"+phone, d("50"))
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.EqualError(t, err, "Invalid amount for refund.")

	_, err = f.orch.Refund(context.Background(), "ok:"+phone, d("0.02"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.orch.Refund(context.Background(), "ok:"+phone, d("0.005"))
	require.ErrorIs(t, err, ErrInvalidAmount, "sub-cent amounts are rejected")
	require.Len(t, f.ledger.all(), 1)

	msg, err := f.orch.Refund(context.Background(), "ok:"+phone, d("0.01"))
	require.NoError(t, err)
	assert.Equal(t, "Refund successful. Refund transaction: 0.01", msg)

	// Refunds subtract from the balance.
	assert.True(t, f.dir.balance(c.ID).Equal(d("399.99")))

	entries := f.ledger.all()
	require.Len(t, entries, 2)
	refund := entries[1]
	require.NotNil(t, refund.ParentID)
	assert.Equal(t, entries[0].ID, *refund.ParentID)
	assert.Equal(t, model.KindRefund, refund.Kind)
}

func TestRefund_RemainingPolicy(t *testing.T) {
	f := newFixture(WithRefundPolicy(RefundRemaining))
	f.dir.add(phone, "500.00")
	purchaseFirst(t, f, "100")
	ctx := context.Background()

	_, err := f.orch.Refund(ctx, "ok:"+phone, d("60"))
	require.NoError(t, err)

	_, err = f.orch.Refund(ctx, "ok:"+phone, d("40.01"))
	assert.ErrorIs(t, err, ErrInvalidAmount, "cannot exceed what is left of the purchase")

	_, err = f.orch.Refund(ctx, "ok:"+phone, d("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.orch.Refund(ctx, "ok:"+phone, d("10.015"))
	assert.ErrorIs(t, err, ErrInvalidAmount, "sub-cent amounts are rejected")
	require.Len(t, f.ledger.all(), 2)

	_, err = f.orch.Refund(ctx, "ok:"+phone, d("40"))
	require.NoError(t, err)

	_, err = f.orch.Refund(ctx, "ok:"+phone, d("0.01"))
	assert.ErrorIs(t, err, ErrInvalidAmount, "purchase fully refunded")
}

func TestRefund_TargetsLatestPurchase(t *testing.T) {
	f := newFixture(WithRefundPolicy(RefundRemaining))
	f.dir.add(phone, "500.00")
	purchaseFirst(t, f, "100")
	purchaseFirst(t, f, "10")

	_, err := f.orch.Refund(context.Background(), "ok:"+phone, d("20"))
	assert.ErrorIs(t, err, ErrInvalidAmount, "latest purchase was only 10")

	_, err = f.orch.Refund(context.Background(), "ok:"+phone, d("10"))
	require.NoError(t, err)
	entries := f.ledger.all()
	assert.Equal(t, entries[1].ID, *entries[2].ParentID)
}

func TestRefund_NoPurchaseIsConsistencyFault(t *testing.T) {
	f := newFixture()
	f.dir.add(phone, "500.00")

	_, err := f.orch.Refund(context.Background(), "ok:"+phone, d("0.01"))
	assert.ErrorIs(t, err, ErrInternalConsistency)
}

func TestRun_TokenAndCustomerErrors(t *testing.T) {
	f := newFixture()
	f.dir.add(phone, "100")
	ctx := context.Background()

	_, err := f.orch.Purchase(ctx, "expired-token", d("1"))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = f.orch.TopUp(ctx, "ok:994109999999", d("1"))
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	_, err = f.orch.Purchase(ctx, "ok:", d("1"))
	assert.ErrorIs(t, err, ErrCustomerNotFound, "empty subject surfaces as not found")

	assert.Empty(t, f.ledger.all())
}

func TestRun_PushFailureLeavesUnconfirmedEntry(t *testing.T) {
	f := newFixture()
	c := f.dir.add(phone, "100")
	f.dir.pushErr = errors.New("connection reset")

	_, err := f.orch.Purchase(context.Background(), "ok:"+phone, d("10"))
	require.ErrorIs(t, err, ErrBalancePushFailed)

	entries := f.ledger.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusUnconfirmed, entries[0].Status)
	assert.True(t, f.dir.balance(c.ID).Equal(d("100")))
	assert.Empty(t, f.sink.recorded)
}

func TestRun_ConcurrentChangeVoidsEntry(t *testing.T) {
	f := newFixture()
	f.dir.add(phone, "100")
	f.dir.pushErr = nil

	// Simulate a lost race: the directory moves after lookup but before the push.
	orch := NewOrchestrator(stubTokens{}, &racingDirectory{memDirectory: f.dir}, f.ledger, WithClock(f.clock))

	_, err := orch.Purchase(context.Background(), "ok:"+phone, d("10"))
	require.ErrorIs(t, err, ErrBalanceConflict)

	entries := f.ledger.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusVoid, entries[0].Status)
}

// racingDirectory changes the balance between lookup and update.
type racingDirectory struct {
	*memDirectory
}

func (r *racingDirectory) LookupByPhone(ctx context.Context, p string) (model.Customer, error) {
	c, err := r.memDirectory.LookupByPhone(ctx, p)
	if err == nil {
		r.memDirectory.setBalance(c.ID, "95")
	}
	return c, err
}
