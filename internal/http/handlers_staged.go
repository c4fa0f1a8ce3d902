package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"caja/internal/services"
	"caja/internal/whatsapp"
)

// --- staging queue ---

func (s *Server) handleListStaged(w http.ResponseWriter, r *http.Request) {
	staged, err := s.store.ListStaged(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, staged)
}

type approveStagedRequest struct {
	AccountID string `json:"account_id"`
}

type approveStagedResponse struct {
	TransactionID string `json:"transaction_id"`
}

func (s *Server) handleApproveStaged(w http.ResponseWriter, r *http.Request) {
	var req approveStagedRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	txID, err := s.staging.Approve(r.Context(), r.PathValue("id"), req.AccountID)
	if errors.Is(err, services.ErrAlreadyProcessed) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusOK, approveStagedResponse{TransactionID: txID})
}

func (s *Server) handleRejectStaged(w http.ResponseWriter, r *http.Request) {
	if err := s.staging.Reject(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- WhatsApp webhook ---

// handleWhatsAppWebhook receives Twilio form posts. Every outcome gets a
// TwiML reply; signature failures are the only rejection.
func (s *Server) handleWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeTwiML(w, http.StatusBadRequest, "No pude leer el mensaje.")
		return
	}

	signature := r.Header.Get("X-Twilio-Signature")
	if s.twilioAuthToken != "" {
		if !whatsapp.ValidSignature(s.twilioAuthToken, webhookURL(r), r.PostForm, signature) {
			slog.WarnContext(r.Context(), "Invalid Twilio signature", "url", r.URL.Path)
			writeTwiML(w, http.StatusForbidden, "Firma inválida.")
			return
		}
	}

	body := strings.TrimSpace(r.PostForm.Get("Body"))
	from := strings.TrimSpace(r.PostForm.Get("From"))
	if from == "" {
		from = "desconocido"
	}

	if body == "" || strings.EqualFold(body, "ayuda") {
		writeTwiML(w, http.StatusOK, whatsapp.HelpText)
		return
	}

	cmd, ok := whatsapp.ParseExpenseCommand(body, time.Now())
	if !ok {
		writeTwiML(w, http.StatusOK, "No pude interpretar el mensaje.\n\n"+whatsapp.HelpText)
		return
	}

	reply, err := s.wa.RegisterExpense(r.Context(), cmd, from)
	if err != nil {
		slog.ErrorContext(r.Context(), "WhatsApp expense registration failed", "error", err)
		writeTwiML(w, http.StatusInternalServerError, "No pude guardar el gasto.")
		return
	}

	s.invalidateReportCaches()
	writeTwiML(w, http.StatusOK, reply)
}

// webhookURL reconstructs the public URL Twilio signed, honoring proxy
// headers the way the deployment terminates TLS.
func webhookURL(r *http.Request) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return proto + "://" + host + r.URL.Path
}

func writeTwiML(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(twimlMessage(message)))
}

func twimlMessage(message string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><Response><Message>` +
		escapeXML(message) + `</Message></Response>`
}

func escapeXML(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(value)
}
