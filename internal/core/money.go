// Package core holds the ledger domain model shared by storage, reports
// and the ingestion pipelines.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied amount string to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// The value must be strictly positive; signs are applied later by
// SignedAmount at the write boundary.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SignedAmount normalizes the sign of an amount at the write boundary:
// expense lines are stored negative, income lines positive. Transfer and
// adjustment amounts are intentionally mixed-sign per line and pass
// through unchanged. The report aggregators rely on amounts being
// sign-correct at rest and never re-derive sign from the type tag.
func SignedAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case Expense:
		return amount.Abs().Neg()
	case Income:
		return amount.Abs()
	default:
		return amount
	}
}
