package http

import (
	"log/slog"
	"net/http"
)

// handleCashFlow serves GET /api/cash-flow?months=id1,id2,...
// An empty month list is a valid request with a null body.
func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	monthIDs, cacheKey := parseMonthsParam(r)

	if cached, ok := s.cashFlowCache.Get(cacheKey); ok {
		slog.DebugContext(r.Context(), "Cash flow served from cache", "key", cacheKey)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	data, err := s.reports.CashFlow(r.Context(), monthIDs)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.cashFlowCache.Set(cacheKey, data)
	writeJSON(w, http.StatusOK, data)
}

// handleResults serves GET /api/results?months=id1,id2,...
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	monthIDs, cacheKey := parseMonthsParam(r)

	if cached, ok := s.resultsCache.Get(cacheKey); ok {
		slog.DebugContext(r.Context(), "Results served from cache", "key", cacheKey)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	data, err := s.reports.Results(r.Context(), monthIDs)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.resultsCache.Set(cacheKey, data)
	writeJSON(w, http.StatusOK, data)
}
