package logger

import (
	"context"
	"testing"
)

func TestContext_Logger(t *testing.T) {
	l, buf := newTestLogger(t, "info", "json")

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("stored")
	if entry := decode(t, buf); entry["msg"] != "stored" {
		t.Errorf("msg = %v", entry["msg"])
	}

	if FromContext(context.Background()) != Default() {
		t.Error("FromContext without a logger should return Default()")
	}
}

func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q", got)
	}
	ctx = WithRequestID(ctx, "req-01J")
	if got := RequestIDFromContext(ctx); got != "req-01J" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
}

func TestL_AddsRequestID(t *testing.T) {
	l, buf := newTestLogger(t, "info", "json")

	ctx := WithRequestID(WithLogger(context.Background(), l), "req-42")
	L(ctx).Info("append accepted", "sequence", 7)

	entry := decode(t, buf)
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v, want req-42", entry["request_id"])
	}
	if entry["sequence"] != float64(7) {
		t.Errorf("sequence = %v, want 7", entry["sequence"])
	}
}

func TestWithContext_SlogContextCalls(t *testing.T) {
	l, buf := newTestLogger(t, "info", "json")

	ctx := WithRequestID(context.Background(), "req-slog")
	l.Slog().InfoContext(ctx, "handled")
	if entry := decode(t, buf); entry["request_id"] != "req-slog" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}
