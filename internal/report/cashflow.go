// Package report derives the cash-flow and results (P&L) views from raw
// ledger data. It is a stateless read-side transformation: reads fan out
// concurrently, fail fast as a unit and the aggregation itself is pure
// in-memory work over the fetched snapshot.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"caja/internal/core"
)

// Service computes reports over a Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// reportData is the joined snapshot of one fan-out read phase.
type reportData struct {
	accounts   []core.Account
	months     []core.Month
	openings   []core.OpeningBalance
	byMonth    []core.Transaction
	byAccrual  []core.Transaction
	categories []core.Category
}

// fetch issues the independent reads concurrently and joins them. Any
// failure aborts the whole report; no partial data escapes.
func (s *Service) fetch(ctx context.Context, monthIDs []string, withBalances bool) (*reportData, error) {
	data := &reportData{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		data.months, err = s.store.ListMonths(ctx, monthIDs)
		if err != nil {
			return fmt.Errorf("list months: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		data.byMonth, err = s.store.ListTransactionsByMonth(ctx, monthIDs)
		if err != nil {
			return fmt.Errorf("list transactions by month: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		data.byAccrual, err = s.store.ListTransactionsByAccrualMonth(ctx, monthIDs)
		if err != nil {
			return fmt.Errorf("list transactions by accrual month: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		data.categories, err = s.store.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	if withBalances {
		g.Go(func() error {
			var err error
			data.accounts, err = s.store.ListActiveAccounts(ctx)
			if err != nil {
				return fmt.Errorf("list active accounts: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			data.openings, err = s.store.ListOpeningBalances(ctx, monthIDs)
			if err != nil {
				return fmt.Errorf("list opening balances: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// CashFlow builds the cash-basis report for the given months. An empty
// month list yields (nil, nil): no periods selected is not an error.
//
// Balances follow the recorded month (cash moves when it is booked), while
// the categorized income and expense sections follow the effective month,
// so an accrual-adjusted transaction can change a month's closing balance
// without showing up in that month's category rows.
func (s *Service) CashFlow(ctx context.Context, monthIDs []string) (*CashFlowData, error) {
	if len(monthIDs) == 0 {
		return nil, nil
	}

	data, err := s.fetch(ctx, monthIDs, true)
	if err != nil {
		return nil, err
	}

	months := sortMonths(data.months)
	target := targetSet(monthIDs)
	all := dedupTransactions(data.byMonth, data.byAccrual)
	resolved := resolveTransactions(all, target)

	categoryNames := make(map[string]string, len(data.categories))
	for _, c := range data.categories {
		categoryNames[c.ID] = c.Name
	}

	// Opening balances: one row per active account, zero where no balance
	// is stored. Balances for inactive or unknown accounts never render.
	openingByKey := make(map[string]decimal.Decimal, len(data.openings))
	for _, ob := range data.openings {
		openingByKey[ob.MonthID+"|"+ob.AccountID] = ob.Amount
	}

	openingRows := make([]Row, len(data.accounts))
	for i, acc := range data.accounts {
		values := make(PeriodMap, len(months))
		for _, m := range months {
			values[m.ID] = openingByKey[m.ID+"|"+acc.ID]
		}
		openingRows[i] = Row{ID: acc.ID, Label: acc.Name, Values: values}
	}

	// Per-(recorded month, account) deltas over every fetched transaction:
	// income, expense, transfers and adjustments all move cash.
	deltas := make(map[string]decimal.Decimal)
	incomeAcc := make(accMap)
	expenseAcc := make(accMap)

	for _, tx := range all {
		for _, line := range tx.Lines {
			key := tx.MonthID + "|" + line.AccountID
			deltas[key] = deltas[key].Add(line.Amount)
		}
	}
	for _, tx := range resolved {
		catKey := UncategorizedID
		if tx.CategoryID != nil && *tx.CategoryID != "" {
			catKey = *tx.CategoryID
		}
		switch tx.Type {
		case core.Income:
			incomeAcc.add(catKey, tx.EffectiveMonthID, tx.Total())
		case core.Expense:
			expenseAcc.add(catKey, tx.EffectiveMonthID, tx.Total())
		}
		// transfers and adjustments only affect balances
	}

	incomeRows := categoryRows(incomeAcc, months, categoryNames)
	expenseRows := categoryRows(expenseAcc, months, categoryNames)

	incomeSubtotals := subtotals(incomeRows, months)
	expenseSubtotals := subtotals(expenseRows, months)

	totalIncome := make(PeriodMap, len(months))
	totalExpense := make(PeriodMap, len(months))
	resultado := make(PeriodMap, len(months))
	for _, m := range months {
		totalIncome[m.ID] = incomeSubtotals[m.ID]
		totalExpense[m.ID] = expenseSubtotals[m.ID]
		// Expense amounts are stored negative, so this is a plain sum.
		resultado[m.ID] = totalIncome[m.ID].Add(totalExpense[m.ID])
	}

	// Closing balance: opening rolled forward with the net cash movement.
	closingRows := make([]Row, len(data.accounts))
	for i, acc := range data.accounts {
		values := make(PeriodMap, len(months))
		for _, m := range months {
			opening := openingByKey[m.ID+"|"+acc.ID]
			values[m.ID] = opening.Add(deltas[m.ID+"|"+acc.ID])
		}
		closingRows[i] = Row{ID: acc.ID, Label: acc.Name, Values: values}
	}

	slog.DebugContext(ctx, "cash flow report built",
		"months", len(months),
		"transactions", len(all),
		"resolved", len(resolved))

	return &CashFlowData{
		Months: monthRefs(months),
		OpeningBalances: Section{
			Label:     LabelOpeningBalances,
			Rows:      openingRows,
			Subtotals: subtotals(openingRows, months),
		},
		Incomes: Section{
			Label:     LabelCashIncomes,
			Rows:      incomeRows,
			Subtotals: incomeSubtotals,
		},
		Expenses: Section{
			Label:     LabelCashExpenses,
			Rows:      expenseRows,
			Subtotals: expenseSubtotals,
		},
		ClosingBalances: Section{
			Label:     LabelClosingBalances,
			Rows:      closingRows,
			Subtotals: subtotals(closingRows, months),
		},
		TotalIncome:  totalIncome,
		TotalExpense: totalExpense,
		Resultado:    resultado,
	}, nil
}
