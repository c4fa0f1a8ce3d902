package report

import (
	"context"

	"caja/internal/core"
)

// Store is the read-side contract the report engine consumes. Both ledger
// backends implement it; the engine itself never writes.
type Store interface {
	// ListActiveAccounts returns active accounts ordered by name.
	ListActiveAccounts(ctx context.Context) ([]core.Account, error)

	// ListMonths returns the months matching the given IDs, in no
	// particular order.
	ListMonths(ctx context.Context, ids []string) ([]core.Month, error)

	// ListOpeningBalances returns the stored opening balances for the
	// given months. Absent (month, account) pairs mean zero.
	ListOpeningBalances(ctx context.Context, monthIDs []string) ([]core.OpeningBalance, error)

	// ListTransactionsByMonth returns transactions recorded in the given
	// months, with line amounts attached.
	ListTransactionsByMonth(ctx context.Context, monthIDs []string) ([]core.Transaction, error)

	// ListTransactionsByAccrualMonth returns transactions accrued to the
	// given months, with line amounts attached.
	ListTransactionsByAccrualMonth(ctx context.Context, monthIDs []string) ([]core.Transaction, error)

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]core.Category, error)
}
