// Package service provides domain services for the reason journal.
//
// JournalService serializes access to a single journal context so that
// concurrent callers, such as HTTP handlers, can share it. The storage
// layer itself is single-threaded.
package service
