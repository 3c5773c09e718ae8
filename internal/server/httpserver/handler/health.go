package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. It reports 503 once the journal is closed.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		h.writeError(w, r, http.StatusServiceUnavailable, CodeNotReady, "journal is not open", nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
