// Package shutdown runs cleanup hooks when the daemon stops.
//
// Hooks run once, newest first, under a shared deadline. The daemon
// registers the journal close before the HTTP server shutdown so that
// requests drain before the journal is flushed and its key wiped.
package shutdown
