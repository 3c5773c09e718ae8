// Package secret provides an owned buffer for key material.
//
// A Buffer is allocated outside the Go heap via an anonymous mmap on unix
// platforms, locked into RAM when the memlock limit allows it, excluded
// from core dumps on Linux, and zeroed before it is released. The garbage
// collector never sees the memory and cannot leave stale copies behind.
//
// The journal copies caller-supplied keys into a Buffer on open and closes
// it on Close, so key bytes do not outlive the journal context.
package secret
