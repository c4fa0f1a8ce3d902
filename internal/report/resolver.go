package report

import (
	"sort"

	"caja/internal/core"
)

// resolvedTransaction is a transaction tagged with the month it is actually
// reported under on an accrual basis. The original fields stay untouched so
// callers can still see whether the transaction was accrual-adjusted.
type resolvedTransaction struct {
	core.Transaction
	EffectiveMonthID string
}

// Accrued reports whether the transaction's effect was moved away from its
// recorded month.
func (r resolvedTransaction) Accrued() bool {
	return r.EffectiveMonthID != r.Transaction.MonthID
}

// effectiveMonth resolves the accrual-dating rule: the accrual month when
// present, otherwise the recorded month.
func effectiveMonth(tx core.Transaction) string {
	if tx.AccrualMonthID != nil && *tx.AccrualMonthID != "" {
		return *tx.AccrualMonthID
	}
	return tx.MonthID
}

// dedupTransactions merges the recorded-in and accrued-to query results by
// transaction ID. A transaction satisfying both criteria is the same logical
// entity and must appear once. The result is ID-sorted for determinism.
func dedupTransactions(byMonth, byAccrual []core.Transaction) []core.Transaction {
	seen := make(map[string]core.Transaction, len(byMonth)+len(byAccrual))
	for _, tx := range byMonth {
		seen[tx.ID] = tx
	}
	for _, tx := range byAccrual {
		seen[tx.ID] = tx
	}

	merged := make([]core.Transaction, 0, len(seen))
	for _, tx := range seen {
		merged = append(merged, tx)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}

// resolveTransactions tags each transaction with its effective month and
// keeps only those whose effective month is in the target set. This second
// filter drops, e.g., a transaction recorded in a selected month but accrued
// to one out of scope. Transfers and adjustments are retained; the
// aggregators decide where they show up.
func resolveTransactions(txs []core.Transaction, target map[string]struct{}) []resolvedTransaction {
	resolved := make([]resolvedTransaction, 0, len(txs))
	for _, tx := range txs {
		eff := effectiveMonth(tx)
		if _, ok := target[eff]; !ok {
			continue
		}
		resolved = append(resolved, resolvedTransaction{Transaction: tx, EffectiveMonthID: eff})
	}
	return resolved
}

func targetSet(monthIDs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(monthIDs))
	for _, id := range monthIDs {
		set[id] = struct{}{}
	}
	return set
}
