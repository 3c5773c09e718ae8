// Package storage implements the reason journal: an append-only file of
// records chained by keyed tags, with optional WAL crash recovery.
//
// Lifecycle:
//
//	Closed -> Recovering -> Open -> Closed
//
// Open and OpenWithWAL create or reopen a journal file, re-derive the chain
// position (from the authenticated tail cache when it is trustworthy, by a
// full scan otherwise) and, with the WAL enabled, replay staged records the
// file lacks. Append commits one record under the configured durability
// policy. Close flushes, writes the tail cache and wipes the key.
//
// VerifyFile checks a journal at rest without opening a context, and
// Iterate walks records structurally without a key.
//
// Files:
//
//	<path>       header + records (see package block)
//	<path>.wal   staged records awaiting checkpoint
//	<path>.tail  CBOR tail pointer, MAC'd, present only after a clean close
package storage
