package wal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage/block"
)

// Contents is the parsed state of a WAL file.
type Contents struct {
	// Records are the complete staged records in file order.
	Records []*domain.Record

	// ValidSize is the length of the prefix holding Records.
	ValidSize int64

	// TornBytes counts trailing bytes of a partially written record.
	TornBytes int64
}

// Empty reports whether the WAL held no bytes at all.
func (c *Contents) Empty() bool {
	return len(c.Records) == 0 && c.TornBytes == 0
}

// ReadAll parses the WAL at path. A missing file reads as empty. A partial
// trailing record is reported in TornBytes and dropped. Malformed records
// and sequence gaps are returned as errors together with the records read
// so far.
func ReadAll(path string, limits domain.Limits) (*Contents, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Contents{}, nil
		}
		return nil, fmt.Errorf("wal: open: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("wal: stat: %w", err)
	}

	out := &Contents{}
	r := block.NewReader(f, limits, 0)
	for {
		rec, err := r.Next()
		if err != nil {
			out.ValidSize = r.Offset()
			switch {
			case errors.Is(err, io.EOF):
				return out, nil
			case errors.Is(err, block.ErrTruncated):
				out.TornBytes = stat.Size() - out.ValidSize
				return out, nil
			default:
				return out, err
			}
		}

		if n := len(out.Records); n > 0 && rec.Sequence != out.Records[n-1].Sequence+1 {
			out.ValidSize = r.Offset() - int64(block.EncodedSize(rec))
			return out, fmt.Errorf("%w: sequence %d follows %d", ErrGap, rec.Sequence, out.Records[n-1].Sequence)
		}
		out.Records = append(out.Records, rec)
	}
}
