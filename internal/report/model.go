package report

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"caja/internal/core"
)

// Section labels as rendered by the presentation layer.
const (
	LabelOpeningBalances = "SALDO INICIAL"
	LabelCashIncomes     = "ENTRADAS"
	LabelCashExpenses    = "SALIDAS"
	LabelClosingBalances = "SALDO DE CIERRE"
	LabelResultsIncomes  = "INGRESOS"
	LabelResultsExpenses = "EGRESOS"
)

// UncategorizedID is the synthetic grouping key for transactions without a
// category reference. It is not a stored entity.
const UncategorizedID = "__uncategorized__"

// UncategorizedLabel is the display label for the uncategorized bucket.
const UncategorizedLabel = "Sin categoría"

type (
	// PeriodMap maps a month ID to an amount. Every report guarantees that
	// each selected month is present as a key, defaulting to zero.
	PeriodMap map[string]decimal.Decimal

	// MonthRef identifies a month column in a report.
	MonthRef struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}

	// Row is one report line: an entity (account or category) with one
	// amount per month.
	Row struct {
		ID     string    `json:"id"`
		Label  string    `json:"label"`
		Values PeriodMap `json:"values"`
	}

	// Section groups rows under a label with per-month subtotals.
	Section struct {
		Label     string    `json:"label"`
		Rows      []Row     `json:"rows"`
		Subtotals PeriodMap `json:"subtotals"`
	}

	// ResultsRow extends Row with a total across all selected months.
	ResultsRow struct {
		Row
		Total decimal.Decimal `json:"total"`
	}

	// ResultsSection extends Section with a grand total of its subtotals.
	ResultsSection struct {
		Label         string          `json:"label"`
		Rows          []ResultsRow    `json:"rows"`
		Subtotals     PeriodMap       `json:"subtotals"`
		SubtotalTotal decimal.Decimal `json:"subtotal_total"`
	}

	// CashFlowData is the cash-basis report.
	CashFlowData struct {
		Months          []MonthRef `json:"months"`
		OpeningBalances Section    `json:"opening_balances"`
		Incomes         Section    `json:"incomes"`
		Expenses        Section    `json:"expenses"`
		ClosingBalances Section    `json:"closing_balances"`
		TotalIncome     PeriodMap  `json:"total_income"`
		TotalExpense    PeriodMap  `json:"total_expense"`
		Resultado       PeriodMap  `json:"resultado"`
	}

	// ResultsData is the accrual-basis profit and loss report.
	ResultsData struct {
		Months         []MonthRef      `json:"months"`
		Incomes        ResultsSection  `json:"incomes"`
		Expenses       ResultsSection  `json:"expenses"`
		Resultado      PeriodMap       `json:"resultado"`
		ResultadoTotal decimal.Decimal `json:"resultado_total"`
	}
)

// accMap is a two-level accumulator: row key → month ID → running amount.
// Keys are created on first upsert only, so rows with zero activity never
// materialise.
type accMap map[string]PeriodMap

func (m accMap) add(key, monthID string, amount decimal.Decimal) {
	inner, ok := m[key]
	if !ok {
		inner = make(PeriodMap)
		m[key] = inner
	}
	inner[monthID] = inner[monthID].Add(amount)
}

// sortMonths orders months ascending by (year, month). The sort order is a
// rendering contract, not an assumption about the input.
func sortMonths(months []core.Month) []core.Month {
	sorted := make([]core.Month, len(months))
	copy(sorted, months)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Month < sorted[j].Month
	})
	return sorted
}

func monthRefs(months []core.Month) []MonthRef {
	refs := make([]MonthRef, len(months))
	for i, m := range months {
		refs[i] = MonthRef{ID: m.ID, Label: m.Label}
	}
	return refs
}

// categoryRows materialises category rows from an accumulator. Every month
// appears as a key in every row (zero default); rows are sorted by label
// with a locale-aware, case-insensitive comparison.
func categoryRows(acc accMap, months []core.Month, categoryNames map[string]string) []Row {
	rows := make([]Row, 0, len(acc))
	for key, byMonth := range acc {
		label := UncategorizedLabel
		if key != UncategorizedID {
			if name, ok := categoryNames[key]; ok {
				label = name
			}
		}
		values := make(PeriodMap, len(months))
		for _, m := range months {
			values[m.ID] = byMonth[m.ID]
		}
		rows = append(rows, Row{ID: key, Label: label, Values: values})
	}
	sortRowsByLabel(rows)
	return rows
}

func sortRowsByLabel(rows []Row) {
	// collate.Collator keeps internal buffers, so build one per call.
	c := collate.New(language.Spanish, collate.Loose)
	sort.SliceStable(rows, func(i, j int) bool {
		return c.CompareString(rows[i].Label, rows[j].Label) < 0
	})
}

// subtotals sums row values per month. All months are present as keys even
// when there are no rows.
func subtotals(rows []Row, months []core.Month) PeriodMap {
	subs := make(PeriodMap, len(months))
	for _, m := range months {
		sum := decimal.Zero
		for _, row := range rows {
			sum = sum.Add(row.Values[m.ID])
		}
		subs[m.ID] = sum
	}
	return subs
}

// sumAcross totals a PeriodMap across all months.
func sumAcross(values PeriodMap) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
