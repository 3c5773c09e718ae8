// Package wal provides the write-ahead log that makes journal appends
// crash safe.
//
// Records are staged to the WAL and fsynced before they are written to the
// main journal file. Once the main file is durable the WAL is truncated to
// zero. After a crash, any staged record the main file lacks is replayed.
//
// Format:
//
//	<journal>.wal
//	[Record]*
//
// The WAL has no header. Records use the block encoding of the main file,
// so the reader shares the main file's decoder and limits.
//
// Guarantees:
//
//   - A record is durable in the WAL before Stage returns
//   - A partially written trailing record is reported, not replayed
//   - Staged records are contiguous; a gap is corruption
package wal
