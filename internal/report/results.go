package report

import (
	"context"
	"log/slog"

	"caja/internal/core"
)

// Results builds the accrual-basis profit and loss report for the given
// months. An empty month list yields (nil, nil).
//
// There is no account dimension and no balance sections: purely category ×
// month over income and expense, attributed to the effective (accrual)
// month. Transfers and adjustments have no income-statement effect and are
// excluded entirely.
func (s *Service) Results(ctx context.Context, monthIDs []string) (*ResultsData, error) {
	if len(monthIDs) == 0 {
		return nil, nil
	}

	data, err := s.fetch(ctx, monthIDs, false)
	if err != nil {
		return nil, err
	}

	months := sortMonths(data.months)
	target := targetSet(monthIDs)
	resolved := resolveTransactions(dedupTransactions(data.byMonth, data.byAccrual), target)

	categoryNames := make(map[string]string, len(data.categories))
	for _, c := range data.categories {
		categoryNames[c.ID] = c.Name
	}

	incomeAcc := make(accMap)
	expenseAcc := make(accMap)
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
	}

	incomes := resultsSection(LabelResultsIncomes, incomeAcc, months, categoryNames)
	expenses := resultsSection(LabelResultsExpenses, expenseAcc, months, categoryNames)

	resultado := make(PeriodMap, len(months))
	for _, m := range months {
		resultado[m.ID] = incomes.Subtotals[m.ID].Add(expenses.Subtotals[m.ID])
	}

	slog.DebugContext(ctx, "results report built",
		"months", len(months),
		"resolved", len(resolved))

	return &ResultsData{
		Months:         monthRefs(months),
		Incomes:        incomes,
		Expenses:       expenses,
		Resultado:      resultado,
		ResultadoTotal: incomes.SubtotalTotal.Add(expenses.SubtotalTotal),
	}, nil
}

func resultsSection(label string, acc accMap, months []core.Month, categoryNames map[string]string) ResultsSection {
	base := categoryRows(acc, months, categoryNames)

	rows := make([]ResultsRow, len(base))
	for i, row := range base {
		rows[i] = ResultsRow{Row: row, Total: sumAcross(row.Values)}
	}

	subs := subtotals(base, months)
	return ResultsSection{
		Label:         label,
		Rows:          rows,
		Subtotals:     subs,
		SubtotalTotal: sumAcross(subs),
	}
}
