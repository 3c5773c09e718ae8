// Package domain defines the core domain models for the reason journal.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Record: one reason block (sequence, reason tag, payload, timestamp, chain tag)
//   - Tag: the 32-byte keyed authentication tag chaining records together
//   - Limits: bounds on reason tag and payload lengths
//   - Errors: the journal error taxonomy (I/O, corruption, overflow, state)
package domain
