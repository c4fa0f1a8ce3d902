package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caja/internal/amqp"
	"caja/internal/core"
	"caja/internal/storage"
)

// fakeStore implements StagingStore and WhatsAppStore in memory.
type fakeStore struct {
	months       map[string]core.Month
	staged       map[string]core.StagedTransaction
	transactions map[string]core.Transaction
	categories   []core.Category
	accounts     []core.Account
	balances     []storage.AccountBalance

	nextID        int
	markOverride  func(id string) (bool, error)
	getMonthMiss  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		months:       make(map[string]core.Month),
		staged:       make(map[string]core.StagedTransaction),
		transactions: make(map[string]core.Transaction),
	}
}

func (f *fakeStore) genID() string {
	f.nextID++
	return "id-" + strconv.Itoa(f.nextID)
}

func (f *fakeStore) GetMonthByYearMonth(_ context.Context, year, month int) (core.Month, error) {
	if f.getMonthMiss > 0 {
		f.getMonthMiss--
		return core.Month{}, core.ErrNotFound
	}
	for _, m := range f.months {
		if m.Year == year && m.Month == month {
			return m, nil
		}
	}
	return core.Month{}, core.ErrNotFound
}

func (f *fakeStore) CreateMonth(_ context.Context, m core.Month, balances []core.OpeningBalance) (core.Month, error) {
	if m.ID == "" {
		m.ID = f.genID()
	}
	if m.Label == "" {
		m.Label = core.DefaultLabel(m.Year, m.Month)
	}
	for _, existing := range f.months {
		if existing.Year == m.Year && existing.Month == m.Month {
			return core.Month{}, core.ErrMonthExists
		}
	}
	f.months[m.ID] = m
	return m, nil
}

func (f *fakeStore) PreviousClosingBalances(context.Context, int, int) ([]storage.AccountBalance, error) {
	return f.balances, nil
}

func (f *fakeStore) GetStaged(_ context.Context, id string) (core.StagedTransaction, error) {
	s, ok := f.staged[id]
	if !ok {
		return core.StagedTransaction{}, core.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) InsertStaged(_ context.Context, s core.StagedTransaction) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if s.ID == "" {
		s.ID = f.genID()
	}
	if s.Status == "" {
		s.Status = core.StagedPending
	}
	f.staged[s.ID] = s
	return s.ID, nil
}

func (f *fakeStore) MarkStagedProcessed(_ context.Context, id string) (bool, error) {
	if f.markOverride != nil {
		return f.markOverride(id)
	}
	s, ok := f.staged[id]
	if !ok || s.Status == core.StagedProcessed || s.Status == core.StagedRejected {
		return false, nil
	}
	s.Status = core.StagedProcessed
	f.staged[id] = s
	return true, nil
}

func (f *fakeStore) RejectStaged(_ context.Context, id string) error {
	s, ok := f.staged[id]
	if !ok || s.Status == core.StagedProcessed || s.Status == core.StagedRejected {
		return core.ErrNotFound
	}
	s.Status = core.StagedRejected
	f.staged[id] = s
	return nil
}

func (f *fakeStore) FindCategoryByName(_ context.Context, name string, t core.TransactionType) (core.Category, error) {
	for _, c := range f.categories {
		if c.Name == name && c.Type == t {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func (f *fakeStore) FindAccountByName(_ context.Context, name string) (core.Account, error) {
	for _, a := range f.accounts {
		if a.Name == name && a.Active {
			return a, nil
		}
	}
	return core.Account{}, core.ErrNotFound
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = f.genID()
	}
	f.transactions[t.ID] = t
	return t.ID, nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := f.transactions[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

func TestGetOrCreateMonthSeedsBalances(t *testing.T) {
	store := newFakeStore()
	store.balances = []storage.AccountBalance{
		{AccountID: "a1", AccountName: "Caja", Balance: decimal.RequireFromString("800")},
	}

	m, err := GetOrCreateMonth(context.Background(), store, core.NewDate(2026, 1, 15))
	require.NoError(t, err)

	assert.Equal(t, 2026, m.Year)
	assert.Equal(t, 1, m.Month)
	assert.Equal(t, "Enero 2026", m.Label)

	// second call resolves the same month without creating another
	again, err := GetOrCreateMonth(context.Background(), store, core.NewDate(2026, 1, 28))
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
	assert.Len(t, store.months, 1)
}

func TestIngestResolvesCategory(t *testing.T) {
	store := newFakeStore()
	store.categories = []core.Category{{ID: "c1", Name: "Combustibles", Type: core.Expense}}
	svc := NewStagingService(store, "Caja")

	msg := amqp.NewStagedTransactionMessage("ref-1", "2026-01-10", "expense", "1250,50", "Nafta", "sheet")
	msg.Category = "Combustibles"

	id, err := svc.Ingest(context.Background(), msg)
	require.NoError(t, err)

	staged := store.staged[id]
	require.NotNil(t, staged.CategoryID)
	assert.Equal(t, "c1", *staged.CategoryID)
	assert.Equal(t, "1250.5", staged.Amount.String())
	assert.Equal(t, core.StagedPending, staged.Status)
}

func TestIngestUnknownCategoryStaysUncategorized(t *testing.T) {
	store := newFakeStore()
	svc := NewStagingService(store, "Caja")

	msg := amqp.NewStagedTransactionMessage("ref-2", "2026-01-10", "expense", "100", "Nafta", "sheet")
	msg.Category = "Inexistente"

	id, err := svc.Ingest(context.Background(), msg)
	require.NoError(t, err)
	assert.Nil(t, store.staged[id].CategoryID)
}

func TestGetOrCreateMonthLostCreationRace(t *testing.T) {
	store := newFakeStore()
	existing, err := store.CreateMonth(context.Background(), core.Month{Year: 2026, Month: 1}, nil)
	require.NoError(t, err)

	// first lookup misses, so the create runs and hits the unique index
	store.getMonthMiss = 1

	m, err := GetOrCreateMonth(context.Background(), store, core.NewDate(2026, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, existing.ID, m.ID, "the concurrently created month is returned, not an error")
}

func TestIngestRejectsBadInput(t *testing.T) {
	store := newFakeStore()
	svc := NewStagingService(store, "Caja")

	tests := []struct {
		name string
		msg  *amqp.StagedTransactionMessage
	}{
		{"bad date", amqp.NewStagedTransactionMessage("", "10/01/2026", "expense", "100", "x", "s")},
		{"bad amount", amqp.NewStagedTransactionMessage("", "2026-01-10", "expense", "-100", "x", "s")},
		{"bad type", amqp.NewStagedTransactionMessage("", "2026-01-10", "internal_transfer", "100", "x", "s")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tt.msg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, amqp.ErrUnprocessable),
				"malformed input must be flagged permanent so the consumer drops it")
		})
	}
}

func TestApproveCreatesSignedTransaction(t *testing.T) {
	store := newFakeStore()
	store.accounts = []core.Account{{ID: "a1", Name: "Caja", Active: true}}
	svc := NewStagingService(store, "Caja")

	stagedID, err := store.InsertStaged(context.Background(), core.StagedTransaction{
		Date:        core.NewDate(2026, 1, 10),
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("250"),
		Description: "Nafta",
	})
	require.NoError(t, err)

	txID, err := svc.Approve(context.Background(), stagedID, "")
	require.NoError(t, err)

	tx := store.transactions[txID]
	require.Len(t, tx.Lines, 1)
	assert.Equal(t, "a1", tx.Lines[0].AccountID, "default account is used when none given")
	assert.Equal(t, "-250", tx.Lines[0].Amount.String(), "expense amounts are stored negative")
	assert.Equal(t, core.StagedProcessed, store.staged[stagedID].Status)
	require.Len(t, store.months, 1, "target month is created on demand")
}

func TestApproveAlreadyProcessed(t *testing.T) {
	store := newFakeStore()
	store.accounts = []core.Account{{ID: "a1", Name: "Caja", Active: true}}
	svc := NewStagingService(store, "Caja")

	stagedID, _ := store.InsertStaged(context.Background(), core.StagedTransaction{
		Date:        core.NewDate(2026, 1, 10),
		Type:        core.Income,
		Amount:      decimal.RequireFromString("100"),
		Description: "Ventas",
	})

	_, err := svc.Approve(context.Background(), stagedID, "a1")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), stagedID, "a1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Len(t, store.transactions, 1)
}

func TestApproveLostRaceBacksOut(t *testing.T) {
	store := newFakeStore()
	store.accounts = []core.Account{{ID: "a1", Name: "Caja", Active: true}}
	store.markOverride = func(string) (bool, error) { return false, nil }
	svc := NewStagingService(store, "Caja")

	stagedID, _ := store.InsertStaged(context.Background(), core.StagedTransaction{
		Date:        core.NewDate(2026, 1, 10),
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("50"),
		Description: "Duplicada",
	})

	_, err := svc.Approve(context.Background(), stagedID, "a1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Empty(t, store.transactions, "losing approval deletes its transaction")
}

func TestReject(t *testing.T) {
	store := newFakeStore()
	svc := NewStagingService(store, "Caja")

	stagedID, _ := store.InsertStaged(context.Background(), core.StagedTransaction{
		Date:        core.NewDate(2026, 1, 10),
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("50"),
		Description: "Error de carga",
	})

	require.NoError(t, svc.Reject(context.Background(), stagedID))
	assert.Equal(t, core.StagedRejected, store.staged[stagedID].Status)

	err := svc.Reject(context.Background(), stagedID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}
