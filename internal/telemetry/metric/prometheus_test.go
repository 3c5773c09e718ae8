package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	body := scrape(t, Handler())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestRegistry_ObserveAppend(t *testing.T) {
	r := NewRegistry()

	r.ObserveAppend(time.Millisecond, 100, nil)
	r.ObserveAppend(2*time.Millisecond, 50, nil)
	r.ObserveAppend(0, 0, errors.New("disk full"))

	if got := testutil.ToFloat64(r.AppendsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("appends ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.AppendsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("appends error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.BytesWritten); got != 150 {
		t.Errorf("bytes written = %v, want 150", got)
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, "rjournal_append_duration_seconds_count 2") {
		t.Error("expected rjournal_append_duration_seconds_count 2")
	}
}

func TestRegistry_ObserveRecoveryAndVerify(t *testing.T) {
	r := NewRegistry()

	r.ObserveRecovery("replayed", 4)
	r.ObserveRecovery("not_needed", 0)
	r.ObserveVerify(true)
	r.ObserveVerify(false)

	if got := testutil.ToFloat64(r.ReplayedRecords); got != 4 {
		t.Errorf("replayed = %v, want 4", got)
	}
	if got := testutil.ToFloat64(r.RecoveriesTotal.WithLabelValues("replayed")); got != 1 {
		t.Errorf("recoveries replayed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.VerifyTotal.WithLabelValues("corrupt")); got != 1 {
		t.Errorf("verify corrupt = %v, want 1", got)
	}
}

func TestRegistry_RecordRequest(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("POST", "/v1/records", "201", 5*time.Millisecond)
	r.RecordRequest("GET", "/v1/stats", "200", time.Millisecond)
	r.IncRateLimited()

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `rjournal_http_requests_total{method="POST",route="/v1/records",status="201"} 1`) {
		t.Error("expected request counter for POST /v1/records")
	}
	if !strings.Contains(body, "rjournal_http_request_duration_seconds_bucket") {
		t.Error("expected rjournal_http_request_duration_seconds_bucket")
	}
	if !strings.Contains(body, "rjournal_http_rate_limited_total 1") {
		t.Error("expected rjournal_http_rate_limited_total 1")
	}
}

func TestRegistry_RegisterCollector(t *testing.T) {
	r := NewRegistry()
	c := NewCollector(nil)
	c.Observe(time.Millisecond)

	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !strings.Contains(scrape(t, r.Handler()), "rjournal_session_blocks 1") {
		t.Error("expected journal collector gauges in scrape")
	}
	if !r.Unregister(c) {
		t.Error("Unregister returned false")
	}
}

func TestNopObserver(t *testing.T) {
	var o Observer = NopObserver{}
	o.ObserveAppend(time.Second, 1, nil)
	o.ObserveRecovery("failed", 0)
	o.ObserveVerify(false)
}
