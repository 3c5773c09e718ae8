package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/core/service"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
)

type testEnv struct {
	h    *Handler
	svc  *service.JournalService
	path string
}

func newTestEnv(t *testing.T, maxBody int64) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "http.rj")
	j, err := storage.OpenWithWAL(path, []byte("handler-key"), true,
		storage.WithLogger(logger.Discard().Slog()),
		storage.WithLimits(domain.Limits{MaxReasonLen: 16, MaxPayloadLen: 64}))
	if err != nil {
		t.Fatalf("OpenWithWAL() error = %v", err)
	}
	svc := service.NewJournalService(j)
	t.Cleanup(func() { svc.Close() })
	return &testEnv{h: New(svc, logger.Discard().Slog(), maxBody), svc: svc, path: path}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("X-Request-ID", "req-test")
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHandler_Health(t *testing.T) {
	env := newTestEnv(t, 1024)

	rec := env.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decode(t, rec); resp.RequestID != "req-test" {
		t.Errorf("RequestID = %q, want req-test", resp.RequestID)
	}

	if rec := env.do(http.MethodGet, "/ready", ""); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}
	env.svc.Close()
	if rec := env.do(http.MethodGet, "/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready after close = %d, want 503", rec.Code)
	}
}

func TestHandler_Append(t *testing.T) {
	env := newTestEnv(t, 1024)

	rec := env.do(http.MethodPost, "/v1/records", `{"reason_tag":"login","payload_text":"user=42"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	data, _ := resp.Data.(map[string]any)
	if data["sequence"] != float64(0) {
		t.Errorf("sequence = %v, want 0", data["sequence"])
	}
	if tag, _ := data["chain_tag"].(string); len(tag) != 64 {
		t.Errorf("chain_tag = %q, want 64 hex chars", tag)
	}

	// base64 payload
	rec = env.do(http.MethodPost, "/v1/records", `{"reason_tag":"bin","payload":"AAEC"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	stats, _ := decode(t, rec).Data.(map[string]any)
	if stats["next_sequence"] != float64(2) {
		t.Errorf("next_sequence = %v, want 2", stats["next_sequence"])
	}
}

func TestHandler_AppendErrors(t *testing.T) {
	env := newTestEnv(t, 256)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed json", `{"reason_tag":`, http.StatusBadRequest, CodeBadRequest},
		{"unknown field", `{"reason":"x"}`, http.StatusBadRequest, CodeBadRequest},
		{"both payloads", `{"reason_tag":"x","payload":"AA==","payload_text":"a"}`, http.StatusBadRequest, CodeBadRequest},
		{"reason over limit", `{"reason_tag":"` + strings.Repeat("r", 17) + `"}`, http.StatusRequestEntityTooLarge, domain.ErrOverflow.Code},
		{"payload over limit", `{"reason_tag":"x","payload_text":"` + strings.Repeat("p", 65) + `"}`, http.StatusRequestEntityTooLarge, domain.ErrOverflow.Code},
		{"body over limit", `{"reason_tag":"x","payload_text":"` + strings.Repeat("p", 300) + `"}`, http.StatusRequestEntityTooLarge, CodeBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/v1/records", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := rec.Header().Get("X-Error-Code"); got != tt.wantErr {
				t.Errorf("X-Error-Code = %q, want %q", got, tt.wantErr)
			}
		})
	}

	env.svc.Close()
	rec := env.do(http.MethodPost, "/v1/records", `{"reason_tag":"x"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("append after close = %d, want 409", rec.Code)
	}
}

func TestHandler_Verify(t *testing.T) {
	env := newTestEnv(t, 1024)
	for i := 0; i < 3; i++ {
		if rec := env.do(http.MethodPost, "/v1/records", `{"reason_tag":"v"}`); rec.Code != http.StatusCreated {
			t.Fatalf("append status = %d", rec.Code)
		}
	}

	rec := env.do(http.MethodPost, "/v1/verify", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body %s", rec.Code, rec.Body.String())
	}
	report, _ := decode(t, rec).Data.(map[string]any)
	if report["records"] != float64(3) || report["valid"] != true {
		t.Errorf("report = %v", report)
	}

	// Damage the last record's tag behind the journal's back.
	data, err := os.ReadFile(env.path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(env.path, data, 0600); err != nil {
		t.Fatal(err)
	}

	rec = env.do(http.MethodPost, "/v1/verify", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("verify status = %d, want 422", rec.Code)
	}
	var resp struct {
		Details CorruptionDetails `json:"details"`
	}
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Details.Sequence == nil || *resp.Details.Sequence != 2 {
		t.Errorf("details = %+v, want sequence 2", resp.Details)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		domain.ErrOverflow.Code:        http.StatusRequestEntityTooLarge,
		domain.ErrState.Code:           http.StatusConflict,
		domain.ErrCorruption.Code:      http.StatusUnprocessableEntity,
		domain.ErrKeyInvalid.Code:      http.StatusBadRequest,
		domain.ErrInvalidArgument.Code: http.StatusBadRequest,
		domain.ErrIO.Code:              http.StatusInternalServerError,
		CodeNotReady:                   http.StatusServiceUnavailable,
		CodeBodyTooLarge:               http.StatusRequestEntityTooLarge,
		"":                             http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", code, got, want)
		}
	}
}
