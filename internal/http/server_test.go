package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caja/internal/config"
	"caja/internal/core"
	"caja/internal/report"
	"caja/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "caja.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := &config.Config{
		Port:                   "0",
		WhatsAppDefaultAccount: "Caja",
		ReportCacheSize:        10,
		ReportCacheTTL:         time.Minute,
	}

	srv := NewServer(cfg, repo)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, repo
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAccountCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Caja", "type": "cash", "is_active": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decodeBody[core.Account](t, rec)
	require.NotEmpty(t, account.ID)

	rec = doJSON(t, srv, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	accounts := decodeBody[[]core.Account](t, rec)
	require.Len(t, accounts, 1)

	rec = doJSON(t, srv, http.MethodPut, "/api/accounts/"+account.ID, map[string]any{
		"name": "Caja Chica", "type": "cash", "is_active": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/accounts/"+account.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/accounts/"+account.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMonthSeedsOpeningBalances(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	account, err := repo.CreateAccount(ctx, core.Account{Name: "Caja", Active: true})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPost, "/api/months", map[string]any{"year": 2025, "month": 12})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dec := decodeBody[core.Month](t, rec)
	assert.Equal(t, "Diciembre 2025", dec.Label)

	// book an expense in December, then January must open at its closing
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		MonthID:     dec.ID,
		Date:        core.NewDate(2025, 12, 15),
		Type:        core.Expense,
		Description: "Combustible",
		Lines:       []core.LineAmount{{AccountID: account.ID, Amount: decimal.RequireFromString("-200")}},
	})
	require.NoError(t, err)

	rec = doJSON(t, srv, http.MethodPost, "/api/months", map[string]any{"year": 2026, "month": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	jan := decodeBody[core.Month](t, rec)

	balances, err := repo.ListOpeningBalances(ctx, []string{jan.ID})
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "-200", balances[0].Amount.String())

	// duplicate month
	rec = doJSON(t, srv, http.MethodPost, "/api/months", map[string]any{"year": 2026, "month": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWriteStoreErrorMapsMonthExistsToConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/months", nil)

	writeStoreError(rec, req, fmt.Errorf("month 2026-01: %w", core.ErrMonthExists))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransactionEndpointNormalizesSigns(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, core.Account{Name: "Caja", Active: true})
	month, _ := repo.CreateMonth(ctx, core.Month{Year: 2026, Month: 1}, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"month_id":    month.ID,
		"date":        "2026-01-10",
		"type":        "expense",
		"description": "Nafta",
		"amounts": []map[string]any{
			{"account_id": account.ID, "amount": "250"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decodeBody[core.Transaction](t, rec)
	require.Len(t, tx.Lines, 1)
	assert.Equal(t, "-250", tx.Lines[0].Amount.String(), "expense amounts are stored negative")

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?month="+month.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decodeBody[[]core.Transaction](t, rec)
	require.Len(t, txs, 1)
}

func TestClosedMonthConflicts(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, core.Account{Name: "Caja", Active: true})
	month, _ := repo.CreateMonth(ctx, core.Month{Year: 2026, Month: 2}, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/months/"+month.ID+"/close", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"month_id":    month.ID,
		"date":        "2026-02-10",
		"type":        "expense",
		"description": "Tarde",
		"amounts": []map[string]any{
			{"account_id": account.ID, "amount": "10"},
		},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCashFlowEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, core.Account{Name: "Caja", Active: true})
	month, _ := repo.CreateMonth(ctx, core.Month{Year: 2025, Month: 12}, []core.OpeningBalance{
		{AccountID: account.ID, Amount: decimal.RequireFromString("1000")},
	})
	cat, _ := repo.CreateCategory(ctx, core.Category{Name: "Ventas", Type: core.Income})
	_, err := repo.CreateTransaction(ctx, core.Transaction{
		MonthID:     month.ID,
		Date:        core.NewDate(2025, 12, 5),
		Type:        core.Income,
		Description: "Ventas semana 1",
		CategoryID:  &cat.ID,
		Lines:       []core.LineAmount{{AccountID: account.ID, Amount: decimal.RequireFromString("500")}},
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/cash-flow?months="+month.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeBody[report.CashFlowData](t, rec)

	require.Len(t, data.Months, 1)
	assert.Equal(t, "1500", data.ClosingBalances.Subtotals[month.ID].String())
	require.Len(t, data.Incomes.Rows, 1)
	assert.Equal(t, "Ventas", data.Incomes.Rows[0].Label)
}

func TestCashFlowEmptyMonthsReturnsNull(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/cash-flow", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestReportCacheInvalidationOnWrite(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, core.Account{Name: "Caja", Active: true})
	month, _ := repo.CreateMonth(ctx, core.Month{Year: 2026, Month: 1}, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/results?months="+month.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	before := decodeBody[report.ResultsData](t, rec)
	assert.Empty(t, before.Incomes.Rows)

	rec = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"month_id":    month.ID,
		"date":        "2026-01-10",
		"type":        "income",
		"description": "Ventas",
		"amounts": []map[string]any{
			{"account_id": account.ID, "amount": "900"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// the write must evict the cached report
	rec = doJSON(t, srv, http.MethodGet, "/api/results?months="+month.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	after := decodeBody[report.ResultsData](t, rec)
	require.Len(t, after.Incomes.Rows, 1)
	assert.Equal(t, "900", after.ResultadoTotal.String())
}

func TestStagedApproveEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	account, _ := repo.CreateAccount(ctx, core.Account{Name: "Caja", Active: true})
	stagedID, err := repo.InsertStaged(ctx, core.StagedTransaction{
		Date:        core.NewDate(2026, 1, 10),
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("250"),
		Description: "Nafta",
		Source:      "sheet",
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/staged", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	staged := decodeBody[[]core.StagedTransaction](t, rec)
	require.Len(t, staged, 1)

	rec = doJSON(t, srv, http.MethodPost, "/api/staged/"+stagedID+"/approve", map[string]any{
		"account_id": account.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[approveStagedResponse](t, rec)
	require.NotEmpty(t, resp.TransactionID)

	// second approval conflicts
	rec = doJSON(t, srv, http.MethodPost, "/api/staged/"+stagedID+"/approve", map[string]any{
		"account_id": account.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// month was created on demand from the staged date
	_, err = repo.GetMonthByYearMonth(ctx, 2026, 1)
	assert.NoError(t, err)
}

func TestStagedRejectEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)

	stagedID, err := repo.InsertStaged(context.Background(), core.StagedTransaction{
		Date:        core.NewDate(2026, 1, 10),
		Type:        core.Income,
		Amount:      decimal.RequireFromString("10"),
		Description: "Dup",
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPost, "/api/staged/"+stagedID+"/reject", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/staged/"+stagedID+"/reject", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWhatsAppWebhook(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, core.Account{Name: "Caja", Active: true})
	require.NoError(t, err)
	_, err = repo.CreateCategory(ctx, core.Category{Name: "Combustibles", Type: core.Expense})
	require.NoError(t, err)

	postForm := func(body string) *httptest.ResponseRecorder {
		form := fmt.Sprintf("From=%s&Body=%s", "whatsapp:+549111", body)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewBufferString(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec
	}

	rec := postForm("ayuda")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Formato esperado")
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))

	rec = postForm("gasto 100 | Combustibles | Peaje")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gasto registrado")

	rec = postForm("cualquier cosa")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No pude interpretar el mensaje")
}
