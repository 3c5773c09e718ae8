// Package block implements the on-disk encoding of journal records.
//
// Main file format:
//
//	[header:16]
//	[Record]*
//
// Header:
//
//	[magic:8 "RSNJRNL\x01"][mac algorithm:1][reserved:1][max_reason_len:2][max_payload_len:4]
//
// Record wire format (big-endian):
//
//	[sequence:8][reason_len:2][reason][payload_len:4][payload][timestamp:8][chain_tag:32]
//
// The WAL uses the same record encoding without a header. Lengths in a
// record are checked against the header limits before any allocation, so a
// corrupt length field cannot trigger an oversized read.
package block
