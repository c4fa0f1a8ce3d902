package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caja/internal/core"
	"caja/internal/whatsapp"
)

func TestRegisterExpense(t *testing.T) {
	store := newFakeStore()
	store.categories = []core.Category{{ID: "c1", Name: "Combustibles", Type: core.Expense}}
	store.accounts = []core.Account{{ID: "a1", Name: "Caja", Active: true}}
	svc := NewWhatsAppService(store, "Caja")

	reply, err := svc.RegisterExpense(context.Background(), whatsapp.ExpenseCommand{
		Amount:      decimal.RequireFromString("18500"),
		Category:    "Combustibles",
		Description: "Carga de gasoil",
		Date:        "2026-02-18",
	}, "whatsapp:+5491112345678")
	require.NoError(t, err)

	assert.Contains(t, reply, "Gasto registrado")
	assert.Contains(t, reply, "18500.00")
	assert.Contains(t, reply, "Combustibles")

	require.Len(t, store.transactions, 1)
	for _, tx := range store.transactions {
		assert.Equal(t, core.Expense, tx.Type)
		assert.Contains(t, tx.Description, "[WhatsApp whatsapp:+5491112345678]")
		require.Len(t, tx.Lines, 1)
		assert.Equal(t, "-18500", tx.Lines[0].Amount.String())
	}
}

func TestRegisterExpenseExplicitAccount(t *testing.T) {
	store := newFakeStore()
	store.categories = []core.Category{{ID: "c1", Name: "Combustibles", Type: core.Expense}}
	store.accounts = []core.Account{
		{ID: "a1", Name: "Caja", Active: true},
		{ID: "a2", Name: "Galicia", Active: true},
	}
	svc := NewWhatsAppService(store, "Caja")

	_, err := svc.RegisterExpense(context.Background(), whatsapp.ExpenseCommand{
		Amount:      decimal.RequireFromString("100"),
		Category:    "Combustibles",
		Description: "Peaje",
		Account:     "Galicia",
		Date:        "2026-02-18",
	}, "whatsapp:+549111")
	require.NoError(t, err)

	for _, tx := range store.transactions {
		assert.Equal(t, "a2", tx.Lines[0].AccountID)
	}
}

func TestRegisterExpenseUnknownCategory(t *testing.T) {
	store := newFakeStore()
	store.accounts = []core.Account{{ID: "a1", Name: "Caja", Active: true}}
	svc := NewWhatsAppService(store, "Caja")

	reply, err := svc.RegisterExpense(context.Background(), whatsapp.ExpenseCommand{
		Amount:      decimal.RequireFromString("100"),
		Category:    "Inexistente",
		Description: "Prueba",
		Date:        "2026-02-18",
	}, "whatsapp:+549111")
	require.NoError(t, err)

	assert.Contains(t, reply, "No encontré la categoría")
	assert.Empty(t, store.transactions)
}

func TestRegisterExpenseUnknownAccount(t *testing.T) {
	store := newFakeStore()
	store.categories = []core.Category{{ID: "c1", Name: "Varios", Type: core.Expense}}
	svc := NewWhatsAppService(store, "Caja")

	reply, err := svc.RegisterExpense(context.Background(), whatsapp.ExpenseCommand{
		Amount:      decimal.RequireFromString("100"),
		Category:    "Varios",
		Description: "Prueba",
		Date:        "2026-02-18",
	}, "whatsapp:+549111")
	require.NoError(t, err)

	assert.Contains(t, reply, "No encontré la cuenta")
	assert.Empty(t, store.transactions)
}
