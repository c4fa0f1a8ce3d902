package http

import (
	"errors"
	"net/http"

	"caja/internal/core"
)

// --- months ---

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.store.ListAllMonths(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

type createMonthRequest struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
}

// handleCreateMonth creates a month seeded with the previous month's
// closing balances as its opening balances.
func (s *Server) handleCreateMonth(w http.ResponseWriter, r *http.Request) {
	var req createMonthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.store.GetMonthByYearMonth(r.Context(), req.Year, req.Month); err == nil {
		writeError(w, http.StatusConflict, "month already exists")
		return
	} else if !errors.Is(err, core.ErrNotFound) {
		writeStoreError(w, r, err)
		return
	}

	closing, err := s.store.PreviousClosingBalances(r.Context(), req.Year, req.Month)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	balances := make([]core.OpeningBalance, 0, len(closing))
	for _, b := range closing {
		balances = append(balances, core.OpeningBalance{AccountID: b.AccountID, Amount: b.Balance})
	}

	month, err := s.store.CreateMonth(r.Context(), core.Month{
		Year:  req.Year,
		Month: req.Month,
		Label: req.Label,
	}, balances)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusCreated, month)
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.CloseMonth(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.invalidateReportCaches()
	w.WriteHeader(http.StatusNoContent)
}

// --- accounts ---

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var account core.Account
	if err := decodeJSON(r, &account); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account.ID = ""

	created, err := s.store.CreateAccount(r.Context(), account)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var account core.Account
	if err := decodeJSON(r, &account); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account.ID = r.PathValue("id")

	if err := s.store.UpdateAccount(r.Context(), account); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.invalidateReportCaches()
	w.WriteHeader(http.StatusNoContent)
}

// --- categories ---

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var category core.Category
	if err := decodeJSON(r, &category); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	category.ID = ""

	created, err := s.store.CreateCategory(r.Context(), category)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.invalidateReportCaches()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSubcategories(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.ListSubcategories(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleCreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var sub core.Subcategory
	if err := decodeJSON(r, &sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub.ID = ""
	sub.CategoryID = r.PathValue("id")

	created, err := s.store.CreateSubcategory(r.Context(), sub)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSubcategory(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- transactions ---

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	monthID := r.URL.Query().Get("month")
	if monthID == "" {
		writeError(w, http.StatusBadRequest, "missing month query parameter")
		return
	}

	txs, err := s.store.ListTransactionsByMonth(r.Context(), []string{monthID})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx.ID = ""
	normalizeLineSigns(&tx)

	id, err := s.store.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	tx.ID = id

	s.invalidateReportCaches()
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx.ID = r.PathValue("id")
	normalizeLineSigns(&tx)

	if err := s.store.UpdateTransaction(r.Context(), tx); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.invalidateReportCaches()
	w.WriteHeader(http.StatusNoContent)
}

// normalizeLineSigns applies the at-rest sign convention at the API
// boundary: expense lines negative, income lines positive. Transfers and
// adjustments keep the signs the caller sent.
func normalizeLineSigns(tx *core.Transaction) {
	if tx.Type != core.Income && tx.Type != core.Expense {
		return
	}
	for i := range tx.Lines {
		tx.Lines[i].Amount = core.SignedAmount(tx.Type, tx.Lines[i].Amount)
	}
}
