// Package mac provides the keyed hash used to chain journal records.
//
// Two algorithms are supported:
//
//   - BLAKE3 keyed mode: the default, fast on every platform
//   - HMAC-SHA256: for deployments that require a FIPS-listed primitive
//
// The caller's key may have any non-zero length. It is expanded with
// HKDF-SHA256 into a 32-byte subkey bound to the algorithm, and the subkey
// is held in a secret.Buffer that Close wipes.
//
// Only that buffer is wiped. blake3.NewKeyed and hmac.New copy the subkey
// (or its padded forms) into hasher state on the Go heap, which Close
// drops but cannot zero; it lives until the garbage collector reuses it.
// Callers that need the key gone from memory must also keep the process
// from being swapped or dumped.
//
// Usage:
//
//	m, err := mac.New(key)
//	defer m.Close()
//	tag := m.Sum(prev[:], fields)
package mac
