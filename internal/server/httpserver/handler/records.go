package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yndnr/reasonjournal/internal/core/service"
)

// handleAppend handles POST /v1/records.
func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req AppendRecordRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "request body too large", nil)
			return
		}
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	payload := req.Payload
	if req.PayloadText != "" {
		if len(req.Payload) > 0 {
			h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "payload and payload_text are mutually exclusive", nil)
			return
		}
		payload = []byte(req.PayloadText)
	}

	resp, err := h.svc.Append(r.Context(), &service.AppendRequest{
		ReasonTag: req.ReasonTag,
		Payload:   payload,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, resp)
}

// handleStats handles GET /v1/stats.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}

// handleVerify handles POST /v1/verify.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Verify(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, report)
}
