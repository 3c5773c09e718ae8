// Package logger is the structured logger shared by rjournal and rjournald.
//
// It is a thin layer over log/slog. One process-wide level can be changed
// at runtime (the daemon does so on config reload). Records logged with a
// context pick up the request ID stored in it. Attributes that look like
// key material are masked before they reach the handler.
//
// Keys must never be passed to a logger. Redaction only catches mistakes.
package logger
