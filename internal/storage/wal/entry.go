package wal

import (
	"errors"
)

// File format constants.
const (
	// FileExtension is appended to the journal path to name its WAL.
	FileExtension = ".wal"

	// DefaultFilePerm is the permission for newly created WAL files.
	DefaultFilePerm = 0600
)

// Errors for WAL operations.
var (
	ErrClosed = errors.New("wal: writer is closed")

	// ErrGap means staged records are not contiguous.
	ErrGap = errors.New("wal: staged records are not contiguous")
)

// PathFor returns the WAL path belonging to a journal file.
func PathFor(journalPath string) string {
	return journalPath + FileExtension
}
