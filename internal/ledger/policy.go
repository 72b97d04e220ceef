package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RefundPolicy selects the refund amount guard.
type RefundPolicy string

const (
	// RefundLiteral rejects amount > 0.01 or amount > remaining. Almost every refund fails under it.
	RefundLiteral RefundPolicy = "literal"
	// RefundRemaining rejects amount < 0.01 or amount > remaining.
	RefundRemaining RefundPolicy = "remaining"
)

// ParseRefundPolicy validates a configured policy name.
func ParseRefundPolicy(s string) (RefundPolicy, error) {
	switch RefundPolicy(s) {
	case RefundLiteral, RefundRemaining:
		return RefundPolicy(s), nil
	case "":
		return RefundLiteral, nil
	}
	return "", fmt.Errorf("unknown refund policy %q", s)
}

var (
	// MinAmount is the smallest accepted movement.
	MinAmount = decimal.RequireFromString("0.01")
	// DefaultTopUpMax is the inclusive top-up ceiling.
	DefaultTopUpMax = decimal.RequireFromString("1000.00")
)

// wholeCents reports whether amount carries no digits past the second decimal place.
// Stored amounts are NUMERIC(14,2), so anything finer would be rounded on write.
func wholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(2))
}

// purchaseAllowed reports whether 0.01 <= amount <= balance in whole cents.
func purchaseAllowed(amount, balance decimal.Decimal) bool {
	return wholeCents(amount) && !amount.LessThan(MinAmount) && !amount.GreaterThan(balance)
}

// topUpAllowed reports whether 0.01 <= amount <= max in whole cents.
func topUpAllowed(amount, max decimal.Decimal) bool {
	return wholeCents(amount) && !amount.LessThan(MinAmount) && !amount.GreaterThan(max)
}

// refundAllowed applies policy to amount against what is left of the purchase.
func refundAllowed(policy RefundPolicy, amount, remaining decimal.Decimal) bool {
	if !wholeCents(amount) || amount.GreaterThan(remaining) {
		return false
	}
	if policy == RefundRemaining {
		return !amount.LessThan(MinAmount)
	}
	return !amount.GreaterThan(MinAmount)
}

// FormatAmount renders a monetary value with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
