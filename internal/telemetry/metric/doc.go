// Package metric provides journal metrics and their Prometheus export.
//
// This package implements metrics collection and exposition:
//
//   - collector.go: per-journal counters (blocks, write time, mean latency)
//   - prometheus.go: process-wide registry, journal Observer and HTTP handler
//
// Metrics include:
//
//   - Append counts by result and latency histograms
//   - Bytes written to the journal
//   - WAL recoveries and verification failures
//   - HTTP request counts and durations
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
