package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/reasonjournal/internal/server/ratelimit"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
	"github.com/yndnr/reasonjournal/internal/telemetry/metric"
)

const (
	headerRequestID = "X-Request-ID"
	maxRequestIDLen = 128
)

type startKey struct{}

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first runs outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID tags each request with the client's X-Request-ID, or a fresh
// req-<ulid> when none (or an oversized one) was sent. The ID is echoed
// in the response and carried in the logger context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if id == "" || len(id) > maxRequestIDLen {
				id = "req-" + ulid.Make().String()
				r.Header.Set(headerRequestID, id)
			}
			w.Header().Set(headerRequestID, id)

			ctx := logger.WithRequestID(r.Context(), id)
			ctx = context.WithValue(ctx, startKey{}, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestStart returns when RequestID saw the request, or now.
func requestStart(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// RateLimiter rejects requests beyond a per-IP rate.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	metrics *metric.Registry
}

// NewRateLimiter allows rps requests per second per IP with the given burst.
func NewRateLimiter(rps float64, burst int, metrics *metric.Registry) *RateLimiter {
	return &RateLimiter{
		limiter: ratelimit.New(rps, burst),
		metrics: metrics,
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	return rl.limiter.Len()
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.limiter.Allow(clientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			if rl.metrics != nil {
				rl.metrics.IncRateLimited()
			}
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "RJ-HTTP-4290", "too many requests")
		})
	}
}

// Instrument records request count and latency per route pattern.
func Instrument(reg *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			reg.RecordRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}

// Audit logs one line per finished request. 5xx responses log at error
// level, 4xx at warn.
func Audit(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := record(w)
			next.ServeHTTP(rec, r)

			level, msg := slog.LevelInfo, "request completed"
			switch {
			case rec.status >= 500:
				level, msg = slog.LevelError, "request completed with error"
			case rec.status >= 400:
				level, msg = slog.LevelWarn, "request completed with client error"
			}
			log.LogAttrs(r.Context(), level, msg,
				slog.String("request_id", logger.RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int64("bytes", rec.bytes),
				slog.Int64("duration_ms", time.Since(requestStart(r.Context())).Milliseconds()),
				slog.String("client_ip", clientIP(r)),
			)
		})
	}
}

// Recover turns a handler panic into a 500. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.ErrorContext(r.Context(), "panic recovered",
					"request_id", logger.RequestIDFromContext(r.Context()),
					"error", v,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusInternalServerError, "RJ-SYS-5000", "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// recorder captures the status and body size written through it.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

// record wraps w, reusing w when it is already a recorder so stacked
// middlewares share one.
func record(w http.ResponseWriter) *recorder {
	if rec, ok := w.(*recorder); ok {
		return rec
	}
	return &recorder{ResponseWriter: w, status: http.StatusOK}
}

func (w *recorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

func (w *recorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes an error produced by the middleware itself, before
// any handler ran.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

// clientIP picks the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
