// Package storage implements the relational ledger store behind the
// report engine and the CRUD surface. Two interchangeable backends exist:
// SQLite (embedded, migrations run on open) and Postgres (pgx pool).
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"caja/internal/core"
	"caja/internal/report"
)

// AccountBalance is a computed closing balance for one account, used to
// seed opening balances when creating the next month.
type AccountBalance struct {
	AccountID   string          `json:"account_id"`
	AccountName string          `json:"account_name"`
	Balance     decimal.Decimal `json:"balance"`
}

// Store is the full persistence contract. It embeds the read-side contract
// the report engine consumes and adds the write operations of the
// surrounding application.
type Store interface {
	report.Store

	// Months
	ListAllMonths(ctx context.Context) ([]core.Month, error)
	GetMonth(ctx context.Context, id string) (core.Month, error)
	GetMonthByYearMonth(ctx context.Context, year, month int) (core.Month, error)
	CreateMonth(ctx context.Context, m core.Month, balances []core.OpeningBalance) (core.Month, error)
	CloseMonth(ctx context.Context, id string) error
	PreviousClosingBalances(ctx context.Context, year, month int) ([]AccountBalance, error)

	// Accounts
	ListAccounts(ctx context.Context) ([]core.Account, error)
	FindAccountByName(ctx context.Context, name string) (core.Account, error)
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id string) error

	// Categories
	FindCategoryByName(ctx context.Context, name string, t core.TransactionType) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListSubcategories(ctx context.Context, categoryID string) ([]core.Subcategory, error)
	CreateSubcategory(ctx context.Context, s core.Subcategory) (core.Subcategory, error)
	DeleteSubcategory(ctx context.Context, id string) error

	// Transactions
	CreateTransaction(ctx context.Context, tx core.Transaction) (string, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// Staging queue
	ListStaged(ctx context.Context) ([]core.StagedTransaction, error)
	GetStaged(ctx context.Context, id string) (core.StagedTransaction, error)
	InsertStaged(ctx context.Context, s core.StagedTransaction) (string, error)
	MarkStagedProcessed(ctx context.Context, id string) (bool, error)
	RejectStaged(ctx context.Context, id string) error

	Close() error
}
