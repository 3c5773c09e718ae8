package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Observer receives journal events. The storage layer calls it after each
// operation; implementations must not block.
type Observer interface {
	ObserveAppend(d time.Duration, bytes int, err error)
	ObserveRecovery(status string, replayed int)
	ObserveVerify(ok bool)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) ObserveAppend(time.Duration, int, error) {}
func (NopObserver) ObserveRecovery(string, int)             {}
func (NopObserver) ObserveVerify(bool)                      {}

// Registry holds all process-wide metrics.
type Registry struct {
	registry *prometheus.Registry

	// Journal metrics
	AppendsTotal    *prometheus.CounterVec
	AppendDuration  prometheus.Histogram
	BytesWritten    prometheus.Counter
	RecoveriesTotal *prometheus.CounterVec
	ReplayedRecords prometheus.Counter
	VerifyTotal     *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		registry: reg,

		AppendsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rjournal_appends_total",
			Help: "Append calls by result",
		}, []string{"result"}),
		AppendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rjournal_append_duration_seconds",
			Help:    "Append latency including fsync",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
		}),
		BytesWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "rjournal_written_bytes_total",
			Help: "Encoded record bytes committed to the journal",
		}),
		RecoveriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rjournal_recoveries_total",
			Help: "Journal opens by recovery status",
		}, []string{"status"}),
		ReplayedRecords: f.NewCounter(prometheus.CounterOpts{
			Name: "rjournal_wal_replayed_records_total",
			Help: "Records replayed from the WAL",
		}),
		VerifyTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rjournal_verify_total",
			Help: "Integrity verifications by result",
		}, []string{"result"}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rjournal_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rjournal_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "rjournal_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// Register adds an extra collector, such as a journal Collector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Unregister removes a collector added with Register.
func (r *Registry) Unregister(c prometheus.Collector) bool {
	return r.registry.Unregister(c)
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveAppend implements Observer.
func (r *Registry) ObserveAppend(d time.Duration, bytes int, err error) {
	if err != nil {
		r.AppendsTotal.WithLabelValues("error").Inc()
		return
	}
	r.AppendsTotal.WithLabelValues("ok").Inc()
	r.AppendDuration.Observe(d.Seconds())
	r.BytesWritten.Add(float64(bytes))
}

// ObserveRecovery implements Observer.
func (r *Registry) ObserveRecovery(status string, replayed int) {
	r.RecoveriesTotal.WithLabelValues(status).Inc()
	if replayed > 0 {
		r.ReplayedRecords.Add(float64(replayed))
	}
}

// ObserveVerify implements Observer.
func (r *Registry) ObserveVerify(ok bool) {
	if ok {
		r.VerifyTotal.WithLabelValues("ok").Inc()
		return
	}
	r.VerifyTotal.WithLabelValues("corrupt").Inc()
}

// RecordRequest counts one HTTP request.
func (r *Registry) RecordRequest(method, route, status string, d time.Duration) {
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncRateLimited counts one rejected request.
func (r *Registry) IncRateLimited() {
	r.RateLimited.Inc()
}
