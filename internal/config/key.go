package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/pkg/crypto/secret"
)

// KeyPrefix marks a journal key in text form.
const KeyPrefix = "rjk_"

// DefaultKeySize is the length of generated keys.
const DefaultKeySize = 32

// LoadKey returns the journal key from journal.key or journal.key_file in
// a secret.Buffer. The caller closes it once the journal is open; the MAC
// keeps only its derived subkey.
func LoadKey(cfg *JournalSection) (*secret.Buffer, error) {
	var raw []byte
	switch {
	case cfg.Key != "":
		key, err := ParseKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		raw = key
	case cfg.KeyFile != "":
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, domain.ErrKeyInvalid.Wrapf(err, "read key file %s", cfg.KeyFile)
		}
		key, err := ParseKey(string(data))
		secret.Zero(data)
		if err != nil {
			return nil, err
		}
		raw = key
	default:
		return nil, domain.ErrKeyInvalid.WithDetails("neither journal.key nor journal.key_file is set")
	}
	defer secret.Zero(raw)

	buf, err := secret.FromBytes(raw)
	if err != nil {
		return nil, domain.ErrKeyInvalid.Wrapf(err, "hold key")
	}
	return buf, nil
}

// ParseKey decodes a hex key, with or without the rjk_ prefix.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), KeyPrefix)
	if s == "" {
		return nil, domain.ErrKeyInvalid.WithDetails("key is empty")
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, domain.ErrKeyInvalid.Wrapf(err, "key is not hex")
	}
	return key, nil
}

// GenerateKey returns a new random key in text form.
func GenerateKey(size int) (string, error) {
	if size < 8 {
		return "", fmt.Errorf("key size %d is below 8 bytes", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}
