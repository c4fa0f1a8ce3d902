// Package http serves the JSON API, the report endpoints, and the
// Twilio WhatsApp webhook.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"caja/internal/cache"
	"caja/internal/config"
	"caja/internal/report"
	"caja/internal/services"
	"caja/internal/storage"
)

type Server struct {
	http.Server

	store   storage.Store
	reports *report.Service
	staging *services.StagingService
	wa      *services.WhatsAppService

	twilioAuthToken string
	rateLimiter     *rateLimiter

	// Report responses are cached per sorted month-ID set and dropped
	// wholesale on any ledger write.
	cashFlowCache *cache.LRUCache[*report.CashFlowData]
	resultsCache  *cache.LRUCache[*report.ResultsData]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, store storage.Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    ":" + cfg.Port,
			Handler: mux,
		},
		store:            store,
		reports:          report.NewService(store),
		staging:          services.NewStagingService(store, cfg.WhatsAppDefaultAccount),
		wa:               services.NewWhatsAppService(store, cfg.WhatsAppDefaultAccount),
		twilioAuthToken:  cfg.TwilioAuthToken,
		rateLimiter:      newRateLimiter(),
		cashFlowCache:    cache.NewLRUCache[*report.CashFlowData](cfg.ReportCacheSize, cfg.ReportCacheTTL),
		resultsCache:     cache.NewLRUCache[*report.ResultsData](cfg.ReportCacheSize, cfg.ReportCacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// reports
	mux.HandleFunc("GET /api/cash-flow", s.secure(s.handleCashFlow))
	mux.HandleFunc("GET /api/results", s.secure(s.handleResults))

	// months
	mux.HandleFunc("GET /api/months", s.secure(s.handleListMonths))
	mux.HandleFunc("POST /api/months", s.secure(s.handleCreateMonth))
	mux.HandleFunc("POST /api/months/{id}/close", s.secure(s.handleCloseMonth))

	// accounts
	mux.HandleFunc("GET /api/accounts", s.secure(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.secure(s.handleCreateAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.secure(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.secure(s.handleDeleteAccount))

	// categories and subcategories
	mux.HandleFunc("GET /api/categories", s.secure(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.secure(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.secure(s.handleDeleteCategory))
	mux.HandleFunc("GET /api/categories/{id}/subcategories", s.secure(s.handleListSubcategories))
	mux.HandleFunc("POST /api/categories/{id}/subcategories", s.secure(s.handleCreateSubcategory))
	mux.HandleFunc("DELETE /api/subcategories/{id}", s.secure(s.handleDeleteSubcategory))

	// transactions
	mux.HandleFunc("GET /api/transactions", s.secure(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.secure(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.secure(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.secure(s.handleDeleteTransaction))

	// staging queue
	mux.HandleFunc("GET /api/staged", s.secure(s.handleListStaged))
	mux.HandleFunc("POST /api/staged/{id}/approve", s.secure(s.handleApproveStaged))
	mux.HandleFunc("POST /api/staged/{id}/reject", s.secure(s.handleRejectStaged))

	// inbound webhooks
	mux.HandleFunc("POST /webhooks/whatsapp", s.secure(s.handleWhatsAppWebhook))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.cashFlowCache.CleanExpired() + s.resultsCache.CleanExpired()
			if cleaned > 0 {
				slog.Debug("Report cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateReportCaches drops all cached report responses. Called after
// every write that can change a report.
func (s *Server) invalidateReportCaches() {
	s.cashFlowCache.Clear()
	s.resultsCache.Clear()
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// secure adds security headers, rate limiting, and request logging.
func (s *Server) secure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.DebugContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// writes are rate limited per client
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
