package mac

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/reasonjournal/pkg/crypto/secret"
)

const infoPrefix = "reasonjournal/chain/v1/"

// deriveSubkey expands key into a Size-byte subkey bound to alg.
func deriveSubkey(key []byte, alg Algorithm) (*secret.Buffer, error) {
	sub, err := secret.New(Size)
	if err != nil {
		return nil, fmt.Errorf("mac: allocate subkey: %w", err)
	}

	r := hkdf.New(sha256.New, key, nil, []byte(infoPrefix+alg.String()))
	if _, err := io.ReadFull(r, sub.Bytes()); err != nil {
		sub.Close()
		return nil, fmt.Errorf("mac: derive subkey: %w", err)
	}
	return sub, nil
}
