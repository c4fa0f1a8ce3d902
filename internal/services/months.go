// Package services orchestrates multi-step operations over the store,
// the message broker, and the external sources.
package services

import (
	"context"
	"errors"
	"fmt"

	"caja/internal/core"
	"caja/internal/storage"
)

// MonthStore is the slice of the store needed to resolve or create months.
type MonthStore interface {
	GetMonthByYearMonth(ctx context.Context, year, month int) (core.Month, error)
	CreateMonth(ctx context.Context, m core.Month, balances []core.OpeningBalance) (core.Month, error)
	PreviousClosingBalances(ctx context.Context, year, month int) ([]storage.AccountBalance, error)
}

// GetOrCreateMonth returns the ledger month a date falls into, creating it
// when absent. New months open with the previous month's closing balances.
func GetOrCreateMonth(ctx context.Context, store MonthStore, date core.Date) (core.Month, error) {
	year, month := date.Year(), int(date.Month())

	m, err := store.GetMonthByYearMonth(ctx, year, month)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Month{}, fmt.Errorf("get month %d-%02d: %w", year, month, err)
	}

	closing, err := store.PreviousClosingBalances(ctx, year, month)
	if err != nil {
		return core.Month{}, fmt.Errorf("previous closing balances: %w", err)
	}

	balances := make([]core.OpeningBalance, 0, len(closing))
	for _, b := range closing {
		balances = append(balances, core.OpeningBalance{
			AccountID: b.AccountID,
			Amount:    b.Balance,
		})
	}

	created, err := store.CreateMonth(ctx, core.Month{Year: year, Month: month}, balances)
	if errors.Is(err, core.ErrMonthExists) {
		// a concurrent caller created it between the get and the insert
		return store.GetMonthByYearMonth(ctx, year, month)
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("create month %d-%02d: %w", year, month, err)
	}
	return created, nil
}
