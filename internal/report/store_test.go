package report

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"caja/internal/core"
)

// memStore is an in-memory Store used by the report tests. A non-empty
// failOn makes the matching read fail, to exercise fan-out abort behavior.
type memStore struct {
	accounts   []core.Account
	months     []core.Month
	openings   []core.OpeningBalance
	txs        []core.Transaction
	categories []core.Category
	failOn     string
}

var errStore = errors.New("store unavailable")

func (s *memStore) ListActiveAccounts(ctx context.Context) ([]core.Account, error) {
	if s.failOn == "accounts" {
		return nil, errStore
	}
	var out []core.Account
	for _, a := range s.accounts {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) ListMonths(ctx context.Context, ids []string) ([]core.Month, error) {
	if s.failOn == "months" {
		return nil, errStore
	}
	set := targetSet(ids)
	var out []core.Month
	for _, m := range s.months {
		if _, ok := set[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ListOpeningBalances(ctx context.Context, monthIDs []string) ([]core.OpeningBalance, error) {
	if s.failOn == "openings" {
		return nil, errStore
	}
	set := targetSet(monthIDs)
	var out []core.OpeningBalance
	for _, ob := range s.openings {
		if _, ok := set[ob.MonthID]; ok {
			out = append(out, ob)
		}
	}
	return out, nil
}

func (s *memStore) ListTransactionsByMonth(ctx context.Context, monthIDs []string) ([]core.Transaction, error) {
	if s.failOn == "txByMonth" {
		return nil, errStore
	}
	set := targetSet(monthIDs)
	var out []core.Transaction
	for _, tx := range s.txs {
		if _, ok := set[tx.MonthID]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *memStore) ListTransactionsByAccrualMonth(ctx context.Context, monthIDs []string) ([]core.Transaction, error) {
	if s.failOn == "txByAccrual" {
		return nil, errStore
	}
	set := targetSet(monthIDs)
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.AccrualMonthID == nil {
			continue
		}
		if _, ok := set[*tx.AccrualMonthID]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *memStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	if s.failOn == "categories" {
		return nil, errStore
	}
	return s.categories, nil
}

// ─── fixture helpers ───

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func month(id string, year, m int, label string) core.Month {
	return core.Month{ID: id, Year: year, Month: m, Label: label}
}

func expenseTx(id, monthID string, categoryID *string, accountID, amount string) core.Transaction {
	return core.Transaction{
		ID:          id,
		MonthID:     monthID,
		Date:        core.NewDate(2025, 12, 15),
		Type:        core.Expense,
		Description: "gasto " + id,
		CategoryID:  categoryID,
		Lines:       []core.LineAmount{{AccountID: accountID, Amount: dec(amount)}},
	}
}

func incomeTx(id, monthID string, categoryID *string, accountID, amount string) core.Transaction {
	return core.Transaction{
		ID:          id,
		MonthID:     monthID,
		Date:        core.NewDate(2025, 12, 10),
		Type:        core.Income,
		Description: "ingreso " + id,
		CategoryID:  categoryID,
		Lines:       []core.LineAmount{{AccountID: accountID, Amount: dec(amount)}},
	}
}

// assertAmount compares a decimal cell against its string form.
func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("amount = %s, want %s (%v)", got, want, msgAndArgs)
	}
}
