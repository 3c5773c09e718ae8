package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage/block"
	"github.com/yndnr/reasonjournal/internal/storage/chain"
	"github.com/yndnr/reasonjournal/internal/storage/wal"
	"github.com/yndnr/reasonjournal/internal/telemetry/metric"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

// State is the lifecycle state of a journal context.
type State int32

const (
	StateClosed State = iota
	StateRecovering
	StateOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateRecovering:
		return "recovering"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// AppendResult is the outcome of a successful append.
type AppendResult struct {
	Record  *domain.Record
	Latency time.Duration
}

// LatencyMicros returns the append latency in microseconds.
func (r AppendResult) LatencyMicros() float64 {
	return float64(r.Latency) / float64(time.Microsecond)
}

// Journal is an open journal context.
//
// A Journal is not safe for concurrent use; callers serialize access.
type Journal struct {
	path string
	opts Options

	file   *os.File
	header block.Header
	mac    mac.MAC
	chain  *chain.Chain
	wal    *wal.Writer

	st         chain.State
	end        int64
	lastOffset int64
	unsynced   int
	buf        []byte

	// walStale is set while the WAL holds a record whose append failed.
	// Nothing is staged until flush clears it.
	walStale bool

	state     State
	recovery  RecoveryOutcome
	metrics   *metric.Collector
	sessionID string
	logger    *slog.Logger
}

// Open opens or creates the journal at path without a WAL.
func Open(path string, key []byte, opts ...Option) (*Journal, error) {
	return OpenWithWAL(path, key, false, opts...)
}

// OpenWithWAL opens or creates the journal at path. With walEnabled the
// WAL at <path>.wal is opened too, and any records it holds that the
// journal lacks are replayed before OpenWithWAL returns.
//
// The key is copied; the caller keeps ownership of its slice.
func OpenWithWAL(path string, key []byte, walEnabled bool, opts ...Option) (*Journal, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, domain.ErrKeyInvalid.WithDetails("key must not be empty")
	}

	j := &Journal{
		path:      path,
		opts:      o,
		state:     StateClosed,
		sessionID: ulid.Make().String(),
		metrics:   metric.NewCollector(prometheus.Labels{"journal": filepath.Base(path)}),
	}
	j.logger = o.Logger.With("component", "journal", "path", path, "session_id", j.sessionID)

	if err := j.open(key, walEnabled); err != nil {
		if j.state == StateRecovering {
			j.recovery = RecoveryOutcome{Status: RecoveryFailed, Err: err}
			o.Observer.ObserveRecovery(RecoveryFailed.String(), 0)
			j.logger.Error("journal recovery failed", "error", err)
		}
		j.state = StateClosed
		_ = j.release()
		return nil, err
	}
	return j, nil
}

func (j *Journal) open(key []byte, walEnabled bool) error {
	start := time.Now()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_RDWR, j.opts.FilePerm)
	if err != nil {
		return domain.ErrIO.Wrapf(err, "open %s", j.path)
	}
	j.file = f

	stat, err := f.Stat()
	if err != nil {
		return domain.ErrIO.Wrapf(err, "stat %s", j.path)
	}
	size, err := j.loadHeader(stat.Size())
	if err != nil {
		return err
	}

	m, err := mac.NewWithAlgorithm(key, j.header.Algorithm)
	if err != nil {
		if errors.Is(err, mac.ErrEmptyKey) {
			return domain.ErrKeyInvalid.WithCause(err)
		}
		return domain.ErrIO.Wrapf(err, "initialize %s", j.header.Algorithm)
	}
	j.mac = m
	j.chain = chain.New(m)

	torn, dmg, err := j.restoreState(size)
	if err != nil {
		return err
	}

	var contents *wal.Contents
	walPath := wal.PathFor(j.path)
	if walEnabled {
		contents, err = wal.ReadAll(walPath, j.header.Limits)
		if err != nil {
			j.state = StateRecovering
			return walCorruption(walPath, contents, err)
		}
		wcfg := wal.DefaultConfig(j.path)
		wcfg.FilePerm = j.opts.FilePerm
		w, err := wal.OpenWriter(wcfg)
		if err != nil {
			return domain.ErrIO.Wrapf(err, "open wal")
		}
		j.wal = w
	} else if st, err := os.Stat(walPath); err == nil && st.Size() > 0 {
		j.logger.Warn("journal opened without wal while wal has content", "wal_path", walPath, "wal_bytes", st.Size())
	}

	if dmg != nil {
		if !dmg.coveredBy(contents, size) {
			j.state = StateRecovering
			return dmg.err
		}
		j.logger.Warn("damaged tail record has a wal copy",
			"sequence", dmg.sequence,
			"offset", dmg.offset,
			"error", dmg.err)
		torn = true
	}

	if torn || (contents != nil && !contents.Empty()) {
		j.state = StateRecovering
		j.logger.Info("journal recovery started", "torn_tail", torn, "next_sequence", j.st.NextSequence)
		out, err := j.recover(size, torn, contents)
		if err != nil {
			return err
		}
		j.recovery = out
		j.logger.Info("journal recovery completed",
			"replayed", out.Replayed,
			"skipped", out.Skipped,
			"discarded_bytes", out.DiscardedBytes,
			"repaired_tail", out.RepairedTail,
			"elapsed", time.Since(start))
	} else {
		j.recovery = RecoveryOutcome{Status: RecoveryNotNeeded}
	}

	j.opts.Observer.ObserveRecovery(j.recovery.Status.String(), j.recovery.Replayed)
	j.metrics.Reset()
	j.state = StateOpen

	j.logger.Info("journal opened",
		"algorithm", j.header.Algorithm.String(),
		"next_sequence", j.st.NextSequence,
		"wal_enabled", j.wal != nil,
		"sync_mode", string(j.opts.SyncMode),
		"elapsed", time.Since(start))
	return nil
}

// loadHeader reads the file header, writing a fresh one for a new file.
// It returns the file size after any header write.
func (j *Journal) loadHeader(size int64) (int64, error) {
	if size < block.HeaderSize {
		buf := make([]byte, size)
		if _, err := j.file.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
			return 0, domain.ErrIO.Wrapf(err, "read header")
		}
		if !block.IsHeaderPrefix(buf) {
			return 0, domain.NewCorruptionAt(j.path, 0, 0, "invalid header", block.ErrBadMagic)
		}
		return j.createHeader(size > 0)
	}

	buf := make([]byte, block.HeaderSize)
	if _, err := j.file.ReadAt(buf, 0); err != nil {
		return 0, domain.ErrIO.Wrapf(err, "read header")
	}
	hdr, err := block.DecodeHeader(buf)
	if err != nil {
		return 0, domain.NewCorruptionAt(j.path, 0, 0, "invalid header", err)
	}
	if hdr.Algorithm != j.opts.Algorithm {
		j.logger.Debug("using algorithm from file header", "header", hdr.Algorithm.String(), "configured", j.opts.Algorithm.String())
	}
	j.header = hdr
	return size, nil
}

func (j *Journal) createHeader(torn bool) (int64, error) {
	j.header = block.Header{Algorithm: j.opts.Algorithm, Limits: j.opts.Limits}

	if torn {
		j.logger.Warn("rewriting partially written header")
		if err := j.file.Truncate(0); err != nil {
			return 0, domain.ErrIO.Wrapf(err, "truncate header")
		}
	}
	if _, err := j.file.WriteAt(block.EncodeHeader(j.header), 0); err != nil {
		return 0, domain.ErrIO.Wrapf(err, "write header")
	}
	if err := j.file.Sync(); err != nil {
		return 0, domain.ErrIO.Wrapf(err, "sync header")
	}
	if err := syncDir(filepath.Dir(j.path)); err != nil {
		return 0, domain.ErrIO.Wrapf(err, "sync directory")
	}
	j.logger.Info("journal created", "algorithm", j.header.Algorithm.String())
	return block.HeaderSize, nil
}

// restoreState loads the chain position from the tail cache when it can be
// trusted, and by scanning the file otherwise. It reports a torn tail, or
// a damaged record that only the WAL can settle.
func (j *Journal) restoreState(size int64) (bool, *damage, error) {
	if j.opts.TailCache {
		ts, err := consumeTail(j.file, j.path, size, j.header.Limits, j.mac, j.chain)
		switch {
		case err == nil:
			j.st, j.end, j.lastOffset = ts.state, ts.end, ts.lastOffset
			j.logger.Debug("chain state restored from tail cache", "next_sequence", j.st.NextSequence)
			return false, nil, nil
		case errors.Is(err, os.ErrNotExist):
		default:
			j.logger.Warn("tail cache ignored", "error", err)
		}
	}

	res, err := scanMain(j.file, j.path, size, j.header.Limits, j.chain)
	if err != nil && res.damage == nil {
		return false, nil, err
	}
	j.st, j.end, j.lastOffset = res.state, res.end, res.lastOffset
	return res.torn, res.damage, nil
}

// Append adds one record and returns it once it is committed under the
// configured durability policy.
func (j *Journal) Append(reason string, payload []byte) (*domain.Record, error) {
	res, err := j.AppendWithLatency(reason, payload)
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// AppendWithLatency is Append that also reports how long the append took,
// including WAL staging and fsync.
func (j *Journal) AppendWithLatency(reason string, payload []byte) (AppendResult, error) {
	if err := j.checkOpen(); err != nil {
		return AppendResult{}, err
	}
	if err := j.header.Limits.Check(reason, payload); err != nil {
		j.opts.Observer.ObserveAppend(0, 0, err)
		return AppendResult{}, err
	}

	start := time.Now()
	rec, n, err := j.commit(reason, payload)
	latency := time.Since(start)

	j.opts.Observer.ObserveAppend(latency, n, err)
	if err != nil {
		j.logger.Error("append failed", "sequence", j.st.NextSequence, "error", err)
		return AppendResult{}, err
	}
	j.metrics.Observe(latency)
	return AppendResult{Record: rec, Latency: latency}, nil
}

func (j *Journal) commit(reason string, payload []byte) (*domain.Record, int, error) {
	ts := uint64(j.opts.Now().UnixNano())
	if ts < j.st.LastTimestamp {
		ts = j.st.LastTimestamp
	}

	rec := &domain.Record{
		Sequence:  j.st.NextSequence,
		ReasonTag: reason,
		Payload:   append([]byte{}, payload...),
		Timestamp: ts,
	}
	if j.walStale {
		if err := j.flush(); err != nil {
			return nil, 0, err
		}
	}

	next := j.st
	j.chain.Seal(&next, rec)
	j.buf = block.AppendEncode(j.buf[:0], rec)

	var walMark int64
	if j.wal != nil {
		walMark = j.wal.Size()
		if err := j.wal.Stage(rec); err != nil {
			return nil, 0, domain.ErrIO.Wrapf(err, "stage sequence %d", rec.Sequence)
		}
	}

	if _, err := j.file.WriteAt(j.buf, j.end); err != nil {
		j.rollback(walMark)
		return nil, 0, domain.ErrIO.Wrapf(err, "write sequence %d", rec.Sequence)
	}

	synced := false
	if j.opts.SyncMode == SyncModeSync || j.unsynced+1 >= j.opts.SyncEvery {
		if err := j.file.Sync(); err != nil {
			j.rollback(walMark)
			return nil, 0, domain.ErrIO.Wrapf(err, "sync sequence %d", rec.Sequence)
		}
		synced = true
	}

	j.lastOffset = j.end
	j.end += int64(len(j.buf))
	j.st = next

	if synced {
		j.unsynced = 0
		j.checkpointWAL()
	} else {
		j.unsynced++
	}
	return rec, len(j.buf), nil
}

// rollback removes the bytes of a failed append from the main file and
// the WAL so neither holds an uncommitted record.
func (j *Journal) rollback(walMark int64) {
	if err := j.file.Truncate(j.end); err != nil {
		j.logger.Warn("truncate after failed append", "offset", j.end, "error", err)
	}
	if j.wal != nil {
		if err := j.wal.Truncate(walMark, 1); err != nil {
			j.walStale = true
			j.logger.Warn("wal rollback after failed append", "error", err)
		}
	}
}

// checkpointWAL clears the WAL once the main file is durable. A failure
// leaves committed records that the next recovery skips.
func (j *Journal) checkpointWAL() {
	if j.wal == nil {
		return
	}
	if err := j.wal.Reset(); err != nil {
		j.logger.Warn("wal checkpoint failed", "next_sequence", j.st.NextSequence, "error", err)
		return
	}
	j.walStale = false
}

// flush fsyncs appends still pending under SyncModeBatch. When the WAL
// still holds a rolled-back record it must also be cleared, or recovery
// would replay an append that failed.
func (j *Journal) flush() error {
	if j.unsynced == 0 && !j.walStale {
		return nil
	}
	if j.unsynced > 0 {
		if err := j.file.Sync(); err != nil {
			return domain.ErrIO.Wrapf(err, "sync %s", j.path)
		}
		j.unsynced = 0
	}
	if !j.walStale {
		j.checkpointWAL()
		return nil
	}
	if err := j.wal.Reset(); err != nil {
		return domain.ErrIO.Wrapf(err, "clear wal after failed append")
	}
	j.walStale = false
	return nil
}

// Sync forces pending batch appends to disk.
func (j *Journal) Sync() error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	return j.flush()
}

// Close flushes the journal, writes the tail cache, closes the files and
// wipes the key. Any call after Close, including a second Close, returns
// an error matching domain.ErrState.
func (j *Journal) Close() error {
	if err := j.checkOpen(); err != nil {
		return err
	}

	var errs []error
	if err := j.flush(); err != nil {
		errs = append(errs, err)
	}
	if j.opts.TailCache && len(errs) == 0 {
		if err := writeTail(j.path, j.st, j.lastOffset, j.end, j.mac, j.opts.FilePerm); err != nil {
			errs = append(errs, domain.ErrIO.Wrapf(err, "write tail cache"))
		}
	}

	j.state = StateClosed
	if err := j.release(); err != nil {
		errs = append(errs, domain.ErrIO.Wrapf(err, "close %s", j.path))
	}

	j.logger.Info("journal closed", "next_sequence", j.st.NextSequence)
	return errors.Join(errs...)
}

// release closes every handle the context owns.
func (j *Journal) release() error {
	var errs []error
	if j.wal != nil {
		errs = append(errs, j.wal.Close())
		j.wal = nil
	}
	if j.file != nil {
		errs = append(errs, j.file.Close())
		j.file = nil
	}
	if j.mac != nil {
		errs = append(errs, j.mac.Close())
		j.mac = nil
	}
	return errors.Join(errs...)
}

func (j *Journal) checkOpen() error {
	if j.state != StateOpen {
		return domain.ErrState.WithDetails("journal is " + j.state.String())
	}
	return nil
}

// Metrics returns the append metrics for this context.
func (j *Journal) Metrics() (metric.Snapshot, error) {
	if err := j.checkOpen(); err != nil {
		return metric.Snapshot{}, err
	}
	return j.metrics.Snapshot(), nil
}

// Collector exposes the context's metrics for Prometheus registration.
func (j *Journal) Collector() *metric.Collector {
	return j.metrics
}

// Recovery returns the outcome of the recovery that ran at open.
func (j *Journal) Recovery() RecoveryOutcome {
	return j.recovery
}

// State returns the lifecycle state.
func (j *Journal) State() State {
	return j.state
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// SessionID identifies this open context in logs.
func (j *Journal) SessionID() string {
	return j.sessionID
}

// Header returns the file parameters.
func (j *Journal) Header() block.Header {
	return j.header
}

// NextSequence returns the sequence the next append will receive.
func (j *Journal) NextSequence() uint64 {
	return j.st.NextSequence
}

// WALEnabled reports whether appends are staged through the WAL.
func (j *Journal) WALEnabled() bool {
	return j.wal != nil
}
