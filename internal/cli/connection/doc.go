// Package connection is the rjournal client for a running rjournald.
//
// It speaks the daemon's JSON envelope and turns error envelopes into
// *APIError values that keep the daemon's error code.
package connection
