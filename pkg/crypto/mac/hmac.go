package mac

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
	"sync"

	"github.com/yndnr/reasonjournal/pkg/crypto/secret"
)

type hmacMAC struct {
	mu     sync.Mutex
	subkey *secret.Buffer
	h      hash.Hash
}

func newHMAC(key []byte) (*hmacMAC, error) {
	sub, err := deriveSubkey(key, AlgHMACSHA256)
	if err != nil {
		return nil, err
	}
	return &hmacMAC{subkey: sub, h: hmac.New(sha256.New, sub.Bytes())}, nil
}

func (m *hmacMAC) Algorithm() Algorithm { return AlgHMACSHA256 }

func (m *hmacMAC) Sum(parts ...[]byte) [Size]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.h == nil {
		panic("mac: Sum on closed MAC")
	}

	m.h.Reset()
	for _, p := range parts {
		m.h.Write(p)
	}

	var out [Size]byte
	m.h.Sum(out[:0])
	return out
}

func (m *hmacMAC) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.h == nil {
		return nil
	}
	m.h = nil
	return m.subkey.Close()
}

// Equal compares two tags in constant time.
func Equal(a, b [Size]byte) bool {
	return hmac.Equal(a[:], b[:])
}
