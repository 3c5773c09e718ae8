// Package httpserver provides the HTTP/HTTPS server for rjournald.
//
// It uses net/http with Go 1.22 method patterns. Middleware adds request
// IDs, panic recovery, per-IP rate limiting (golang.org/x/time/rate),
// Prometheus instrumentation and audit logging.
package httpserver
