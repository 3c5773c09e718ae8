package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("RJ-TEST-1000", "test message"),
			expected: "[RJ-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("RJ-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[RJ-TEST-1001] test message: extra info",
		},
		{
			name:     "error with cause",
			err:      NewDomainError("RJ-TEST-1002", "test message").WithCause(fmt.Errorf("disk full")),
			expected: "[RJ-TEST-1002] test message: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("RJ-TEST-1000", "message 1")
	err2 := NewDomainError("RJ-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("RJ-TEST-1001", "message 1") // Different code

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_WrapKeepsCode(t *testing.T) {
	cause := fmt.Errorf("fsync: input/output error")
	err := ErrIO.Wrapf(cause, "sync %s", "journal.rj")

	if !errors.Is(err, ErrIO) {
		t.Fatal("wrapped error should match ErrIO")
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should unwrap to cause")
	}
	if GetErrorCode(fmt.Errorf("append: %w", err)) != "RJ-IO-5000" {
		t.Errorf("GetErrorCode = %q, want RJ-IO-5000", GetErrorCode(err))
	}
	if ErrIO.Cause != nil {
		t.Error("sentinel must not be mutated by Wrapf")
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrOverflow, "") {
		t.Error("IsDomainError(ErrOverflow, \"\") = false")
	}
	if !IsDomainError(fmt.Errorf("x: %w", ErrState), "RJ-STATE-4090") {
		t.Error("IsDomainError should see through fmt wrapping")
	}
	if IsDomainError(ErrState, "RJ-IO-5000") {
		t.Error("IsDomainError matched the wrong code")
	}
	if IsDomainError(errors.New("plain"), "") {
		t.Error("plain error is not a DomainError")
	}
}

func TestCorruptionError(t *testing.T) {
	cause := errors.New("tag mismatch")
	err := NewCorruptionAt("/tmp/j.rj", 7, 1024, "chain tag mismatch", cause)

	if !errors.Is(err, ErrCorruption) {
		t.Fatal("CorruptionError should match ErrCorruption")
	}
	if errors.Is(err, ErrIO) {
		t.Fatal("CorruptionError should not match ErrIO")
	}
	if !errors.Is(err, cause) {
		t.Fatal("CorruptionError should unwrap to its cause")
	}

	seq, ok := FailingSequence(fmt.Errorf("verify: %w", err))
	if !ok || seq != 7 {
		t.Errorf("FailingSequence = (%d, %v), want (7, true)", seq, ok)
	}
	if GetErrorCode(err) != ErrCorruption.Code {
		t.Errorf("GetErrorCode = %q, want %q", GetErrorCode(err), ErrCorruption.Code)
	}

	msg := err.Error()
	for _, want := range []string{"RJ-DATA-4220", "/tmp/j.rj", "sequence 7", "offset 1024", "chain tag mismatch"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestCorruptionError_WithoutSequence(t *testing.T) {
	err := NewCorruption("/tmp/j.rj", 0, "bad magic", nil)
	if _, ok := FailingSequence(err); ok {
		t.Error("FailingSequence should report false for header corruption")
	}
	if strings.Contains(err.Error(), "sequence") {
		t.Errorf("Error() = %q, should not mention a sequence", err.Error())
	}
}
