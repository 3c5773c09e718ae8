package storage

import (
	"errors"
	"fmt"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage/block"
	"github.com/yndnr/reasonjournal/internal/storage/wal"
)

// RecoveryStatus tags the outcome of opening a journal.
type RecoveryStatus int

const (
	// RecoveryNotNeeded means the WAL was empty and the file intact.
	RecoveryNotNeeded RecoveryStatus = iota

	// RecoveryReplayed means the WAL or a torn tail was processed.
	RecoveryReplayed

	// RecoveryFailed means the journal could not be opened.
	RecoveryFailed
)

// String returns the status name used in logs and metric labels.
func (s RecoveryStatus) String() string {
	switch s {
	case RecoveryNotNeeded:
		return "not_needed"
	case RecoveryReplayed:
		return "replayed"
	case RecoveryFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// RecoveryOutcome describes what recovery did at open.
type RecoveryOutcome struct {
	Status RecoveryStatus

	// Replayed counts WAL records written to the journal.
	Replayed int

	// Skipped counts WAL records the journal already held.
	Skipped int

	// DiscardedBytes counts bytes of a partial trailing WAL record.
	DiscardedBytes int64

	// RepairedTail is set when a torn main record was replaced from the WAL.
	RepairedTail bool

	// Err is the cause of a failed recovery.
	Err error
}

// recover brings the journal up to date with the WAL. Records the journal
// already holds are skipped, so running it twice is harmless. Tags of
// replayed records are recomputed from the journal's actual last tag.
func (j *Journal) recover(size int64, torn bool, c *wal.Contents) (RecoveryOutcome, error) {
	out := RecoveryOutcome{Status: RecoveryReplayed}
	next := j.st.NextSequence
	walPath := wal.PathFor(j.path)

	var pending []*domain.Record
	if c != nil {
		for _, r := range c.Records {
			if r.Sequence < next {
				out.Skipped++
				continue
			}
			pending = append(pending, r)
		}
		out.DiscardedBytes = c.TornBytes
	}

	if len(pending) > 0 && pending[0].Sequence != next {
		return out, domain.NewCorruptionAt(walPath, next, 0,
			fmt.Sprintf("wal resumes at sequence %d", pending[0].Sequence), nil)
	}

	if torn {
		if len(pending) == 0 {
			return out, domain.NewCorruptionAt(j.path, next, j.end, "torn record with no wal copy", block.ErrTruncated)
		}
		if err := j.file.Truncate(j.end); err != nil {
			return out, domain.ErrIO.Wrapf(err, "truncate torn record at offset %d", j.end)
		}
		j.logger.Warn("torn record removed", "offset", j.end, "bytes", size-j.end, "sequence", next)
		out.RepairedTail = true
	}

	if len(pending) > 0 {
		st := j.st
		lastOffset := j.lastOffset
		buf := j.buf[:0]
		for _, r := range pending {
			if r.Timestamp < st.LastTimestamp {
				r.Timestamp = st.LastTimestamp
			}
			j.chain.Seal(&st, r)
			lastOffset = j.end + int64(len(buf))
			buf = block.AppendEncode(buf, r)
		}
		j.buf = buf

		if _, err := j.file.WriteAt(buf, j.end); err != nil {
			_ = j.file.Truncate(j.end)
			return out, domain.ErrIO.Wrapf(err, "replay sequences %d-%d", next, st.NextSequence-1)
		}
		if err := j.file.Sync(); err != nil {
			_ = j.file.Truncate(j.end)
			return out, domain.ErrIO.Wrapf(err, "sync replayed records")
		}

		j.st = st
		j.end += int64(len(buf))
		j.lastOffset = lastOffset
		out.Replayed = len(pending)
	}

	if j.wal != nil {
		if err := j.wal.Reset(); err != nil {
			return out, domain.ErrIO.Wrapf(err, "clear wal after replay")
		}
	}
	return out, nil
}

// walCorruption maps a WAL parse failure to a CorruptionError.
func walCorruption(path string, c *wal.Contents, err error) error {
	var offset int64
	if c != nil {
		offset = c.ValidSize
	}
	if errors.Is(err, wal.ErrGap) && c != nil && len(c.Records) > 0 {
		return domain.NewCorruptionAt(path, c.Records[len(c.Records)-1].Sequence+1, offset, "wal sequence gap", err)
	}
	if errors.Is(err, block.ErrMalformed) {
		return domain.NewCorruption(path, offset, "malformed wal record", err)
	}
	return domain.ErrIO.Wrapf(err, "read wal %s", path)
}
