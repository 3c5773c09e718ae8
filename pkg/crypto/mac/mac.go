package mac

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the tag length produced by every algorithm.
const Size = 32

// Algorithm identifies the keyed hash. The numeric value is persisted in
// the journal header, so existing values must never change.
type Algorithm uint8

const (
	AlgBLAKE3     Algorithm = 1
	AlgHMACSHA256 Algorithm = 2
)

// DefaultAlgorithm is used when none is configured.
const DefaultAlgorithm = AlgBLAKE3

var (
	// ErrEmptyKey is returned when the key has no bytes.
	ErrEmptyKey = errors.New("mac: key must not be empty")

	// ErrUnknownAlgorithm is returned for an unsupported algorithm id or name.
	ErrUnknownAlgorithm = errors.New("mac: unknown algorithm")
)

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgBLAKE3:
		return "blake3"
	case AlgHMACSHA256:
		return "hmac-sha256"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	return a == AlgBLAKE3 || a == AlgHMACSHA256
}

// ParseAlgorithm maps a configuration name to an Algorithm.
// An empty name selects DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultAlgorithm, nil
	case "blake3":
		return AlgBLAKE3, nil
	case "hmac-sha256", "hmac_sha256", "hmac":
		return AlgHMACSHA256, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// MAC computes keyed tags over a sequence of byte slices.
type MAC interface {
	// Algorithm returns the algorithm in use.
	Algorithm() Algorithm

	// Sum returns the tag of the concatenation of parts.
	Sum(parts ...[]byte) [Size]byte

	// Close wipes the subkey. Sum must not be called afterwards.
	Close() error
}

// New creates a MAC using DefaultAlgorithm.
func New(key []byte) (MAC, error) {
	return NewWithAlgorithm(key, DefaultAlgorithm)
}

// NewWithAlgorithm creates a MAC of the given algorithm.
func NewWithAlgorithm(key []byte, alg Algorithm) (MAC, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	switch alg {
	case AlgBLAKE3:
		return newBLAKE3(key)
	case AlgHMACSHA256:
		return newHMAC(key)
	default:
		return nil, fmt.Errorf("%w: id %d", ErrUnknownAlgorithm, uint8(alg))
	}
}
