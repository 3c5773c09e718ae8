package storage

import (
	"errors"
	"io"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage/block"
	"github.com/yndnr/reasonjournal/internal/storage/chain"
	"github.com/yndnr/reasonjournal/internal/storage/wal"
)

// walkRecords decodes records from ra between HeaderSize and size, calling
// fn with each record and its offset. It returns the offset just past the
// last record decoded. Decoder errors (block.ErrTruncated,
// block.ErrMalformed) and errors from fn are returned unchanged.
func walkRecords(ra io.ReaderAt, size int64, limits domain.Limits, fn func(rec *domain.Record, off int64) error) (int64, error) {
	if size < block.HeaderSize {
		return block.HeaderSize, nil
	}

	r := block.NewReader(io.NewSectionReader(ra, block.HeaderSize, size-block.HeaderSize), limits, block.HeaderSize)
	for {
		off := r.Offset()
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return off, nil
			}
			return off, err
		}
		if err := fn(rec, off); err != nil {
			return off, err
		}
	}
}

// scanResult is the chain position recovered from the main file.
type scanResult struct {
	state chain.State

	// end is the offset after the last intact record.
	end int64

	// torn is set when bytes of a partial record follow end.
	torn bool

	// lastOffset is the offset of the last intact record.
	lastOffset int64

	records uint64

	// damage is set when a record at end failed to decode or link.
	damage *damage
}

// damage is a record that is present but unreadable or fails the chain.
type damage struct {
	// sequence is the sequence expected at offset.
	sequence uint64
	offset   int64
	err      error
}

// coveredBy reports whether the WAL can stand in for every byte from the
// damaged record to size. Records reach the main file only after their
// WAL copy, so a WAL holding the expected sequence, with at least as many
// bytes staged from it on as the damaged region spans, means the region
// is an unfinished write of those records.
func (d *damage) coveredBy(c *wal.Contents, size int64) bool {
	if c == nil {
		return false
	}
	var staged int64
	found := false
	for _, r := range c.Records {
		if r.Sequence < d.sequence {
			continue
		}
		if r.Sequence == d.sequence {
			found = true
		}
		staged += int64(block.EncodedSize(r))
	}
	return found && size-d.offset <= staged
}

// scanMain re-derives chain state by walking every record in the file.
func scanMain(ra io.ReaderAt, path string, size int64, limits domain.Limits, ch *chain.Chain) (scanResult, error) {
	res := scanResult{state: ch.Start()}

	linkFailed := false
	end, err := walkRecords(ra, size, limits, func(rec *domain.Record, off int64) error {
		if err := ch.Link(&res.state, rec); err != nil {
			linkFailed = true
			return domain.NewCorruptionAt(path, res.state.NextSequence, off, "chain verification failed", err)
		}
		res.records++
		res.lastOffset = off
		return nil
	})
	res.end = end

	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, block.ErrTruncated):
		res.torn = true
		return res, nil
	case linkFailed, errors.Is(err, block.ErrMalformed):
		cerr := recordError(path, res.state.NextSequence, end, err)
		res.damage = &damage{sequence: res.state.NextSequence, offset: end, err: cerr}
		return res, cerr
	default:
		return res, recordError(path, res.state.NextSequence, end, err)
	}
}
