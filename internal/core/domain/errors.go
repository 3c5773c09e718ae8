// Package domain defines the core domain models for the reason journal.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a journal error with a structured error code.
//
// Codes follow the RJ-<AREA>-<NNNN> format; the numeric suffix mirrors the
// closest HTTP status so transports can map them without a lookup table.
type DomainError struct {
	Code    string // Error code (e.g., "RJ-IO-5000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// Wrapf is Wrap with formatted details.
func (e *DomainError) Wrapf(cause error, format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...)).WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var ce *CorruptionError
	if errors.As(err, &ce) {
		return ErrCorruption.Code
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Journal error taxonomy
// ============================================================================

var (
	// ErrIO indicates an open, read, write or fsync failure at the OS boundary.
	ErrIO = NewDomainError("RJ-IO-5000", "journal i/o failure")

	// ErrCorruption indicates a chain tag mismatch, or an unparseable or
	// inconsistent record found while scanning, verifying or recovering.
	ErrCorruption = NewDomainError("RJ-DATA-4220", "journal corruption")

	// ErrOverflow indicates a reason tag or payload exceeding configured bounds.
	ErrOverflow = NewDomainError("RJ-ARG-4130", "record exceeds configured bounds")

	// ErrState indicates an operation on a closed or never-opened journal.
	ErrState = NewDomainError("RJ-STATE-4090", "journal is not open")

	// ErrKeyInvalid indicates unusable key material.
	ErrKeyInvalid = NewDomainError("RJ-ARG-4000", "invalid key material")

	// ErrInvalidArgument indicates a malformed request at an outer surface.
	ErrInvalidArgument = NewDomainError("RJ-ARG-4001", "invalid argument")
)

// CorruptionError reports where a journal stopped being trustworthy.
//
// Sequence is the sequence number the offending record held, or was
// expected to hold, when the failure was detected. HasSequence is false
// for failures outside any record (e.g. a damaged file header or WAL).
type CorruptionError struct {
	Path        string
	Sequence    uint64
	HasSequence bool
	Offset      int64
	Reason      string
	Cause       error
}

// NewCorruptionAt returns a CorruptionError bound to a record sequence.
func NewCorruptionAt(path string, seq uint64, offset int64, reason string, cause error) *CorruptionError {
	return &CorruptionError{
		Path:        path,
		Sequence:    seq,
		HasSequence: true,
		Offset:      offset,
		Reason:      reason,
		Cause:       cause,
	}
}

// NewCorruption returns a CorruptionError not tied to a record.
func NewCorruption(path string, offset int64, reason string, cause error) *CorruptionError {
	return &CorruptionError{
		Path:   path,
		Offset: offset,
		Reason: reason,
		Cause:  cause,
	}
}

// Error implements the error interface.
func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("[%s] %s", ErrCorruption.Code, ErrCorruption.Message)
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.HasSequence {
		msg += fmt.Sprintf(" at sequence %d", e.Sequence)
	}
	msg += fmt.Sprintf(" (offset %d): %s", e.Offset, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CorruptionError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrCorruption) hold for every CorruptionError.
func (e *CorruptionError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == ErrCorruption.Code
}

// FailingSequence returns the sequence reported by a CorruptionError in err's chain.
func FailingSequence(err error) (uint64, bool) {
	var ce *CorruptionError
	if errors.As(err, &ce) && ce.HasSequence {
		return ce.Sequence, true
	}
	return 0, false
}
