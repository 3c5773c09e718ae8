package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/reasonjournal/internal/core/service"
	"github.com/yndnr/reasonjournal/internal/server/httpserver/handler"
	"github.com/yndnr/reasonjournal/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Service is the serialized journal.
	Service *service.JournalService

	// Metrics backs /metrics and request instrumentation. Nil disables both.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger *slog.Logger

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64
	RateBurst int

	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64

	// EnableAudit enables audit logging for all requests.
	EnableAudit bool
}

// NewRouter creates the HTTP router with all routes and middleware.
//
// Order: RequestID -> Recover -> RateLimit -> Instrument -> Audit -> Handler.
// Health, readiness and metrics skip rate limiting and audit.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := handler.New(cfg.Service, logger, cfg.MaxBodyBytes)

	probe := []Middleware{RequestID(), Recover(logger)}

	api := []Middleware{RequestID(), Recover(logger)}
	if cfg.RateLimit > 0 {
		api = append(api, NewRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Metrics).Middleware())
	}
	if cfg.Metrics != nil {
		api = append(api, Instrument(cfg.Metrics))
	}
	if cfg.EnableAudit {
		api = append(api, Audit(logger))
	}

	mux := http.NewServeMux()

	mux.Handle("GET /health", Chain(h, probe...))
	mux.Handle("GET /ready", Chain(h, probe...))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), probe...))
	}

	apiHandler := Chain(h, api...)
	mux.Handle("POST /v1/records", apiHandler)
	mux.Handle("GET /v1/stats", apiHandler)
	mux.Handle("POST /v1/verify", apiHandler)

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimit:    200,
		RateBurst:    400,
		MaxBodyBytes: 2 << 20,
		EnableAudit:  true,
	}
}
