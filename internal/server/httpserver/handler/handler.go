package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/core/service"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
)

// Error codes produced by the transport itself.
const (
	CodeBadRequest    = "RJ-HTTP-4000"
	CodeBodyTooLarge  = "RJ-HTTP-4130"
	CodeNotReady      = "RJ-HTTP-5030"
	CodeInternalError = "RJ-SYS-5000"
)

// Handler serves the journal's JSON API and probes.
type Handler struct {
	svc     *service.JournalService
	logger  *slog.Logger
	maxBody int64
	mux     *http.ServeMux
}

// New creates a new Handler. maxBody bounds request bodies in bytes.
func New(svc *service.JournalService, log *slog.Logger, maxBody int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		svc:     svc,
		logger:  log,
		maxBody: maxBody,
		mux:     http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("POST /v1/records", h.handleAppend)
	h.mux.HandleFunc("GET /v1/stats", h.handleStats)
	h.mux.HandleFunc("POST /v1/verify", h.handleVerify)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.send(w, status, NewResponse(requestID(r), data))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	w.Header().Set("X-Error-Code", code)
	h.send(w, status, NewErrorResponse(requestID(r), code, message, details))
}

func (h *Handler) send(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("write response", "code", resp.Code, "error", err)
	}
}

// requestID prefers the ID the RequestID middleware placed in the
// context and falls back to the request header.
func requestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError renders a journal error. Corruption carries its
// location in the details; anything without a domain code is hidden
// behind a generic 500.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.logger.With("request_id", requestID(r))

	var ce *domain.CorruptionError
	if errors.As(err, &ce) {
		details := &CorruptionDetails{Path: ce.Path, Offset: ce.Offset, Reason: ce.Reason}
		if ce.HasSequence {
			seq := ce.Sequence
			details.Sequence = &seq
		}
		log.Error("journal corruption", "error", err)
		h.writeError(w, r, http.StatusUnprocessableEntity, domain.ErrCorruption.Code, err.Error(), details)
		return
	}

	code := domain.GetErrorCode(err)
	if code == "" {
		log.Error("unclassified error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, CodeInternalError, "internal server error", nil)
		return
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		log.Error("journal error", "code", code, "error", err)
	}
	h.writeError(w, r, status, code, err.Error(), nil)
}

var statusByCode = map[string]int{
	domain.ErrOverflow.Code:        http.StatusRequestEntityTooLarge,
	domain.ErrState.Code:           http.StatusConflict,
	domain.ErrCorruption.Code:      http.StatusUnprocessableEntity,
	domain.ErrKeyInvalid.Code:      http.StatusBadRequest,
	domain.ErrInvalidArgument.Code: http.StatusBadRequest,
	CodeBadRequest:                 http.StatusBadRequest,
	CodeBodyTooLarge:               http.StatusRequestEntityTooLarge,
	CodeNotReady:                   http.StatusServiceUnavailable,
}

// statusFor maps an error code to its HTTP status; unknown codes are 500.
func statusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
