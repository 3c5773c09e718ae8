// Package handler provides the HTTP request handlers for rjournald.
//
// Endpoints:
//
//	POST /v1/records  append one record
//	GET  /v1/stats    session metrics and next sequence
//	POST /v1/verify   verify the whole chain
//	GET  /health      liveness
//	GET  /ready       readiness (journal open)
//
// Every JSON response uses the Response envelope. Journal error codes
// map to HTTP status: bounds 413, state 409, corruption 422.
package handler
