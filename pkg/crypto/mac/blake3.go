package mac

import (
	"fmt"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/yndnr/reasonjournal/pkg/crypto/secret"
)

type blake3MAC struct {
	mu     sync.Mutex
	subkey *secret.Buffer
	h      *blake3.Hasher
}

func newBLAKE3(key []byte) (*blake3MAC, error) {
	sub, err := deriveSubkey(key, AlgBLAKE3)
	if err != nil {
		return nil, err
	}

	h, err := blake3.NewKeyed(sub.Bytes())
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("mac: blake3 keyed hasher: %w", err)
	}
	return &blake3MAC{subkey: sub, h: h}, nil
}

func (m *blake3MAC) Algorithm() Algorithm { return AlgBLAKE3 }

func (m *blake3MAC) Sum(parts ...[]byte) [Size]byte {
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

func (m *blake3MAC) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.h == nil {
		return nil
	}
	m.h = nil
	return m.subkey.Close()
}
