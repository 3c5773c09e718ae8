package wal

import (
	"fmt"
	"os"
	"sync"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage/block"
)

// Config configures the WAL writer.
type Config struct {
	Path     string
	FilePerm os.FileMode
}

// DefaultConfig returns the WAL configuration for a journal file.
func DefaultConfig(journalPath string) Config {
	return Config{
		Path:     PathFor(journalPath),
		FilePerm: DefaultFilePerm,
	}
}

// Writer stages records into the WAL file.
type Writer struct {
	cfg Config

	mu      sync.Mutex
	file    *os.File
	size    int64
	pending int
	buf     []byte
	closed  bool
}

// OpenWriter opens or creates the WAL file. Existing content is kept so
// recovery can read it; new records are staged after it.
func OpenWriter(cfg Config) (*Writer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("wal: path is required")
	}
	if cfg.FilePerm == 0 {
		cfg.FilePerm = DefaultFilePerm
	}

	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_RDWR, cfg.FilePerm)
	if err != nil {
		return nil, fmt.Errorf("wal: open: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("wal: stat: %w", err)
	}

	return &Writer{
		cfg:  cfg,
		file: file,
		size: stat.Size(),
	}, nil
}

// Path returns the WAL file path.
func (w *Writer) Path() string {
	return w.cfg.Path
}

// Stage appends records to the WAL and fsyncs it. On failure the file is
// truncated back to its previous size so no partial record stays behind.
func (w *Writer) Stage(records ...*domain.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	w.buf = w.buf[:0]
	for _, r := range records {
		w.buf = block.AppendEncode(w.buf, r)
	}

	if _, err := w.file.WriteAt(w.buf, w.size); err != nil {
		w.rollbackLocked()
		return fmt.Errorf("wal: write: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.rollbackLocked()
		return fmt.Errorf("wal: sync: %w", err)
	}

	w.size += int64(len(w.buf))
	w.pending += len(records)
	return nil
}

func (w *Writer) rollbackLocked() {
	_ = w.file.Truncate(w.size)
}

// Reset truncates the WAL to zero and fsyncs it. It is the checkpoint
// after staged records reached the main file durably.
func (w *Writer) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("wal: truncate: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	w.size = 0
	w.pending = 0
	return nil
}

// Truncate discards everything after size, undoing Stage calls whose
// records never reached the main file. records is how many staged records
// are discarded.
func (w *Writer) Truncate(size int64, records int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if size >= w.size {
		return nil
	}
	if err := w.file.Truncate(size); err != nil {
		return fmt.Errorf("wal: truncate: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	w.size = size
	w.pending -= records
	if w.pending < 0 {
		w.pending = 0
	}
	return nil
}

// Size returns the number of bytes currently in the WAL.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Pending returns the number of records staged since the last Reset.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Close closes the WAL file without truncating it.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
