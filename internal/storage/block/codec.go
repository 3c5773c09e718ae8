package block

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/yndnr/reasonjournal/internal/core/domain"
)

// Record layout constants.
const (
	seqSize        = 8
	reasonLenSize  = 2
	payloadLenSize = 4
	timestampSize  = 8

	// FixedSize is the encoded size of a record with empty reason and payload.
	FixedSize = seqSize + reasonLenSize + payloadLenSize + timestampSize + domain.TagSize
)

// Errors for record decoding.
var (
	// ErrTruncated means the input ended inside a record.
	ErrTruncated = errors.New("block: record truncated")

	// ErrMalformed means a length field is outside the configured limits.
	ErrMalformed = errors.New("block: malformed record")
)

// EncodedSize returns the number of bytes Encode produces for r.
func EncodedSize(r *domain.Record) int {
	return FixedSize + len(r.ReasonTag) + len(r.Payload)
}

// AppendBody appends every field of r except the chain tag. These are the
// bytes the chain tag authenticates.
func AppendBody(dst []byte, r *domain.Record) []byte {
	dst = binary.BigEndian.AppendUint64(dst, r.Sequence)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(r.ReasonTag)))
	dst = append(dst, r.ReasonTag...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Payload)))
	dst = append(dst, r.Payload...)
	dst = binary.BigEndian.AppendUint64(dst, r.Timestamp)
	return dst
}

// AppendEncode appends the full encoding of r to dst.
func AppendEncode(dst []byte, r *domain.Record) []byte {
	dst = AppendBody(dst, r)
	return append(dst, r.ChainTag[:]...)
}

// Encode returns the full encoding of r.
func Encode(r *domain.Record) []byte {
	return AppendEncode(make([]byte, 0, EncodedSize(r)), r)
}

// Decode parses one record from the front of buf and returns it with the
// number of bytes consumed. The returned record does not alias buf.
func Decode(buf []byte, limits domain.Limits) (*domain.Record, int, error) {
	if len(buf) == 0 {
		return nil, 0, io.EOF
	}
	if len(buf) < seqSize+reasonLenSize {
		return nil, 0, ErrTruncated
	}

	rec := &domain.Record{Sequence: binary.BigEndian.Uint64(buf)}
	off := seqSize

	reasonLen := int(binary.BigEndian.Uint16(buf[off:]))
	off += reasonLenSize
	if reasonLen > limits.MaxReasonLen {
		return nil, 0, fmt.Errorf("%w: reason length %d exceeds %d", ErrMalformed, reasonLen, limits.MaxReasonLen)
	}
	if len(buf) < off+reasonLen+payloadLenSize {
		return nil, 0, ErrTruncated
	}
	rec.ReasonTag = string(buf[off : off+reasonLen])
	off += reasonLen

	payloadLen := uint64(binary.BigEndian.Uint32(buf[off:]))
	off += payloadLenSize
	if payloadLen > uint64(limits.MaxPayloadLen) {
		return nil, 0, fmt.Errorf("%w: payload length %d exceeds %d", ErrMalformed, payloadLen, limits.MaxPayloadLen)
	}
	if uint64(len(buf)) < uint64(off)+payloadLen+timestampSize+domain.TagSize {
		return nil, 0, ErrTruncated
	}
	rec.Payload = append([]byte{}, buf[off:off+int(payloadLen)]...)
	off += int(payloadLen)

	rec.Timestamp = binary.BigEndian.Uint64(buf[off:])
	off += timestampSize
	copy(rec.ChainTag[:], buf[off:off+domain.TagSize])
	off += domain.TagSize

	return rec, off, nil
}

// Reader decodes consecutive records from a stream.
type Reader struct {
	r      *bufio.Reader
	limits domain.Limits
	offset int64
}

// NewReader returns a Reader that starts counting offsets at base.
func NewReader(r io.Reader, limits domain.Limits, base int64) *Reader {
	return &Reader{
		r:      bufio.NewReaderSize(r, 64<<10),
		limits: limits,
		offset: base,
	}
}

// Offset returns the position just past the last record Next returned.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next decodes the next record. It returns io.EOF at a clean record
// boundary, ErrTruncated when the stream ends inside a record and
// ErrMalformed when a length field is out of bounds. After any error
// Offset still points at the start of the failed record.
func (r *Reader) Next() (*domain.Record, error) {
	var prefix [seqSize + reasonLenSize]byte
	n, err := io.ReadFull(r.r, prefix[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, readErr(err)
	}

	rec := &domain.Record{Sequence: binary.BigEndian.Uint64(prefix[:])}
	reasonLen := int(binary.BigEndian.Uint16(prefix[seqSize:]))
	if reasonLen > r.limits.MaxReasonLen {
		return nil, fmt.Errorf("%w: reason length %d exceeds %d", ErrMalformed, reasonLen, r.limits.MaxReasonLen)
	}

	reason := make([]byte, reasonLen)
	if _, err := io.ReadFull(r.r, reason); err != nil {
		return nil, readErr(err)
	}
	rec.ReasonTag = string(reason)

	var lenBuf [payloadLenSize]byte
	if _, err := io.ReadFull(r.r, lenBuf[:]); err != nil {
		return nil, readErr(err)
	}
	payloadLen := uint64(binary.BigEndian.Uint32(lenBuf[:]))
	if payloadLen > uint64(r.limits.MaxPayloadLen) {
		return nil, fmt.Errorf("%w: payload length %d exceeds %d", ErrMalformed, payloadLen, r.limits.MaxPayloadLen)
	}

	rec.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(r.r, rec.Payload); err != nil {
		return nil, readErr(err)
	}

	var tail [timestampSize + domain.TagSize]byte
	if _, err := io.ReadFull(r.r, tail[:]); err != nil {
		return nil, readErr(err)
	}
	rec.Timestamp = binary.BigEndian.Uint64(tail[:])
	copy(rec.ChainTag[:], tail[timestampSize:])

	r.offset += int64(EncodedSize(rec))
	return rec, nil
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
