// Package domain defines the core domain models for the reason journal.
package domain

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Record constraints.
const (
	// TagSize is the length of a chain tag in bytes.
	TagSize = 32

	// DefaultMaxReasonLen bounds reason tags unless configured otherwise.
	DefaultMaxReasonLen = 255

	// DefaultMaxPayloadLen bounds payloads unless configured otherwise.
	DefaultMaxPayloadLen = 1 << 20 // 1MB

	// HardMaxReasonLen is imposed by the u16 length field.
	HardMaxReasonLen = 1<<16 - 1

	// HardMaxPayloadLen is imposed by the u32 length field.
	HardMaxPayloadLen = 1<<32 - 1
)

var hardMaxPayload uint64 = HardMaxPayloadLen

// Tag is a keyed authentication tag linking a record to its predecessor.
type Tag [TagSize]byte

// String returns the hex encoding of the tag.
func (t Tag) String() string {
	return hex.EncodeToString(t[:])
}

// IsZero reports whether every byte of the tag is zero.
func (t Tag) IsZero() bool {
	return t == Tag{}
}

// ParseTag decodes a 64-character hex string into a Tag.
func ParseTag(s string) (Tag, error) {
	var tag Tag
	raw, err := hex.DecodeString(s)
	if err != nil {
		return tag, fmt.Errorf("parse tag: %w", err)
	}
	if len(raw) != TagSize {
		return tag, fmt.Errorf("parse tag: got %d bytes, want %d", len(raw), TagSize)
	}
	copy(tag[:], raw)
	return tag, nil
}

// Record is one reason block: the atomic unit of the journal.
type Record struct {
	// Sequence is assigned at append time, starting at 0, contiguous.
	Sequence uint64 `json:"sequence"`

	// ReasonTag classifies the record's origin or category.
	ReasonTag string `json:"reason_tag"`

	// Payload is opaque to the journal.
	Payload []byte `json:"payload"`

	// Timestamp is the creation time in Unix nanoseconds.
	Timestamp uint64 `json:"timestamp"`

	// ChainTag binds this record to the previous record's tag.
	ChainTag Tag `json:"chain_tag"`
}

// Time returns the record timestamp as a time.Time.
func (r *Record) Time() time.Time {
	return time.Unix(0, int64(r.Timestamp)).UTC()
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := *r
	if r.Payload != nil {
		out.Payload = append([]byte(nil), r.Payload...)
	}
	return &out
}

// Limits bounds the variable-length fields of a record.
type Limits struct {
	MaxReasonLen  int
	MaxPayloadLen int
}

// DefaultLimits returns the default record limits.
func DefaultLimits() Limits {
	return Limits{
		MaxReasonLen:  DefaultMaxReasonLen,
		MaxPayloadLen: DefaultMaxPayloadLen,
	}
}

// Normalize fills zero fields with defaults and clamps to the hard caps.
func (l Limits) Normalize() Limits {
	if l.MaxReasonLen <= 0 {
		l.MaxReasonLen = DefaultMaxReasonLen
	}
	if l.MaxReasonLen > HardMaxReasonLen {
		l.MaxReasonLen = HardMaxReasonLen
	}
	if l.MaxPayloadLen <= 0 {
		l.MaxPayloadLen = DefaultMaxPayloadLen
	}
	if uint64(l.MaxPayloadLen) > hardMaxPayload {
		l.MaxPayloadLen = int(hardMaxPayload)
	}
	return l
}

// Check validates reason and payload lengths against the limits.
func (l Limits) Check(reason string, payload []byte) error {
	if len(reason) > l.MaxReasonLen {
		return ErrOverflow.WithDetails(fmt.Sprintf("reason tag is %d bytes, limit %d", len(reason), l.MaxReasonLen))
	}
	if len(payload) > l.MaxPayloadLen {
		return ErrOverflow.WithDetails(fmt.Sprintf("payload is %d bytes, limit %d", len(payload), l.MaxPayloadLen))
	}
	return nil
}
