package config

import (
	"fmt"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/infra/confloader"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

// Load reads the configuration file (if any) and RJOURNAL_ environment
// variables over the defaults, then verifies the result. The returned
// loader can reload the same sources later.
func Load(file string) (*Config, *confloader.Loader, error) {
	return LoadWithOverrides(file, nil)
}

// LoadWithOverrides is Load with dotted keys (journal.path) applied over
// the file and the environment.
func LoadWithOverrides(file string, overrides map[string]any) (*Config, *confloader.Loader, error) {
	l := confloader.NewLoader(
		confloader.WithConfigFile(file),
		confloader.WithOverrides(overrides))
	cfg := Default()
	if err := l.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, l, nil
}

// StorageOptions converts the journal section to storage options.
func (j *JournalSection) StorageOptions() ([]storage.Option, error) {
	mode, err := storage.ParseSyncMode(j.SyncMode)
	if err != nil {
		return nil, err
	}
	alg, err := mac.ParseAlgorithm(j.Algorithm)
	if err != nil {
		return nil, err
	}
	return []storage.Option{
		storage.WithSyncMode(mode),
		storage.WithSyncEvery(j.SyncEvery),
		storage.WithLimits(domain.Limits{
			MaxReasonLen:  j.MaxReasonBytes,
			MaxPayloadLen: j.MaxPayloadBytes,
		}),
		storage.WithAlgorithm(alg),
		storage.WithTailCache(j.TailCache),
	}, nil
}
