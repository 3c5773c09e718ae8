package block

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

// Header format constants.
const (
	Magic      = "RSNJRNL\x01"
	MagicSize  = 8
	HeaderSize = 16
)

// Errors for header decoding.
var (
	ErrBadMagic     = errors.New("block: invalid magic bytes")
	ErrShortHeader  = errors.New("block: header truncated")
	ErrBadAlgorithm = errors.New("block: unsupported mac algorithm")
)

// Header describes the parameters a journal file was created with.
type Header struct {
	Algorithm mac.Algorithm
	Limits    domain.Limits
}

// EncodeHeader serializes h into its 16-byte form.
func EncodeHeader(h Header) []byte {
	limits := h.Limits.Normalize()

	out := make([]byte, HeaderSize)
	copy(out, Magic)
	out[8] = byte(h.Algorithm)
	out[9] = 0
	binary.BigEndian.PutUint16(out[10:12], uint16(limits.MaxReasonLen))
	binary.BigEndian.PutUint32(out[12:16], uint32(limits.MaxPayloadLen))
	return out
}

// DecodeHeader parses a header from the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	if string(b[:MagicSize]) != Magic {
		return Header{}, ErrBadMagic
	}

	alg := mac.Algorithm(b[8])
	if !alg.Valid() {
		return Header{}, fmt.Errorf("%w: id %d", ErrBadAlgorithm, b[8])
	}

	maxReason := int(binary.BigEndian.Uint16(b[10:12]))
	maxPayload := int(binary.BigEndian.Uint32(b[12:16]))
	if maxReason == 0 || maxPayload == 0 {
		return Header{}, fmt.Errorf("%w: zero record limit", ErrMalformed)
	}

	return Header{
		Algorithm: alg,
		Limits: domain.Limits{
			MaxReasonLen:  maxReason,
			MaxPayloadLen: maxPayload,
		},
	}, nil
}

// IsHeaderPrefix reports whether b could be the beginning of a header
// that was cut short by a crash during creation.
func IsHeaderPrefix(b []byte) bool {
	if len(b) >= HeaderSize {
		return false
	}
	n := len(b)
	if n > MagicSize {
		n = MagicSize
	}
	return bytes.Equal(b[:n], []byte(Magic[:n]))
}
