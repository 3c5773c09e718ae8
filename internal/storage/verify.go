package storage

import (
	"errors"
	"os"
	"time"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage/block"
	"github.com/yndnr/reasonjournal/internal/storage/chain"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

// VerifyReport summarizes a verification pass.
type VerifyReport struct {
	Path      string        `json:"path" yaml:"path"`
	Algorithm string        `json:"algorithm" yaml:"algorithm"`
	Records   uint64        `json:"records" yaml:"records"`
	LastTag   string        `json:"last_tag,omitempty" yaml:"last_tag,omitempty"`
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Valid     bool          `json:"valid" yaml:"valid"`
}

// VerifyFile checks every record of the journal at path against key. It
// never modifies the file. The first failure is returned as a
// *domain.CorruptionError naming the failing sequence; the report still
// describes the records checked before it.
func VerifyFile(path string, key []byte) (*VerifyReport, error) {
	if len(key) == 0 {
		return nil, domain.ErrKeyInvalid.WithDetails("key must not be empty")
	}
	return verifyFile(path, func(alg mac.Algorithm) (mac.MAC, func(), error) {
		m, err := mac.NewWithAlgorithm(key, alg)
		if err != nil {
			return nil, nil, domain.ErrKeyInvalid.WithCause(err)
		}
		return m, func() { m.Close() }, nil
	})
}

// Verify checks the context's own file with its key. Pending batch
// appends are flushed first.
func (j *Journal) Verify() (*VerifyReport, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}
	if err := j.flush(); err != nil {
		return nil, err
	}

	report, err := verifyFile(j.path, func(alg mac.Algorithm) (mac.MAC, func(), error) {
		if alg != j.header.Algorithm {
			return nil, nil, domain.NewCorruptionAt(j.path, 0, 0, "header algorithm changed", nil)
		}
		return j.mac, func() {}, nil
	})
	j.opts.Observer.ObserveVerify(err == nil)
	if err != nil {
		j.logger.Error("journal verification failed", "error", err)
	}
	return report, err
}

type macSource func(alg mac.Algorithm) (mac.MAC, func(), error)

func verifyFile(path string, macFor macSource) (*VerifyReport, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ErrIO.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, domain.ErrIO.Wrapf(err, "stat %s", path)
	}
	report := &VerifyReport{Path: path, Bytes: stat.Size()}

	hdr, err := readHeader(f, path, stat.Size())
	if err != nil {
		return report, err
	}
	report.Algorithm = hdr.Algorithm.String()

	m, done, err := macFor(hdr.Algorithm)
	if err != nil {
		return report, err
	}
	defer done()

	ch := chain.New(m)
	st := ch.Start()
	end, err := walkRecords(f, stat.Size(), hdr.Limits, func(rec *domain.Record, off int64) error {
		if err := ch.Link(&st, rec); err != nil {
			return domain.NewCorruptionAt(path, st.NextSequence, off, "chain verification failed", err)
		}
		report.Records++
		return nil
	})
	report.Duration = time.Since(start)
	if err != nil {
		return report, recordError(path, st.NextSequence, end, err)
	}

	if report.Records > 0 {
		report.LastTag = st.LastTag.String()
	}
	report.Valid = true
	return report, nil
}

// Iterate calls fn for each record of the journal at path, in order,
// with the record's file offset. It checks structure only, needs no key
// and never modifies the file. An error from fn stops the walk and is
// returned unchanged.
func Iterate(path string, fn func(rec *domain.Record, offset int64) error) error {
	f, err := os.Open(path)
	if err != nil {
		return domain.ErrIO.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return domain.ErrIO.Wrapf(err, "stat %s", path)
	}
	hdr, err := readHeader(f, path, stat.Size())
	if err != nil {
		return err
	}

	var next uint64
	end, err := walkRecords(f, stat.Size(), hdr.Limits, func(rec *domain.Record, off int64) error {
		if err := fn(rec, off); err != nil {
			return &iterStop{err}
		}
		next = rec.Sequence + 1
		return nil
	})
	var stop *iterStop
	if errors.As(err, &stop) {
		return stop.err
	}
	if err != nil {
		return recordError(path, next, end, err)
	}
	return nil
}

type iterStop struct{ err error }

func (e *iterStop) Error() string { return e.err.Error() }

func readHeader(f *os.File, path string, size int64) (block.Header, error) {
	if size < block.HeaderSize {
		return block.Header{}, domain.NewCorruptionAt(path, 0, 0, "invalid header", block.ErrShortHeader)
	}
	buf := make([]byte, block.HeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return block.Header{}, domain.ErrIO.Wrapf(err, "read header")
	}
	hdr, err := block.DecodeHeader(buf)
	if err != nil {
		return block.Header{}, domain.NewCorruptionAt(path, 0, 0, "invalid header", err)
	}
	return hdr, nil
}

// recordError maps a walk failure at record seq to the error taxonomy.
func recordError(path string, seq uint64, off int64, err error) error {
	switch {
	case errors.Is(err, domain.ErrCorruption):
		return err
	case errors.Is(err, block.ErrTruncated):
		return domain.NewCorruptionAt(path, seq, off, "truncated record", err)
	case errors.Is(err, block.ErrMalformed):
		return domain.NewCorruptionAt(path, seq, off, "malformed record", err)
	default:
		return domain.ErrIO.Wrapf(err, "read record %d", seq)
	}
}
