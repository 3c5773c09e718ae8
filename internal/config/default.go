package config

import (
	"time"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

// Default configuration values.
const (
	DefaultJournalPath = "/var/lib/rjournal/journal.rj"

	DefaultHTTPAddr        = "127.0.0.1:5480"
	DefaultRateLimit       = 200
	DefaultRateBurst       = 400
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRESPIdle        = 5 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Journal: JournalSection{
			Path:            DefaultJournalPath,
			WALEnabled:      true,
			SyncMode:        string(storage.DefaultSyncMode),
			SyncEvery:       storage.DefaultSyncEvery,
			MaxReasonBytes:  domain.DefaultMaxReasonLen,
			MaxPayloadBytes: domain.DefaultMaxPayloadLen,
			Algorithm:       mac.DefaultAlgorithm.String(),
			TailCache:       true,
		},
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				RateLimit:       DefaultRateLimit,
				RateBurst:       DefaultRateBurst,
				MaxBodyBytes:    int64(domain.DefaultMaxPayloadLen) * 2,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
			RESP: RESPConfig{
				RateLimit:   DefaultRateLimit * 5,
				RateBurst:   DefaultRateBurst * 5,
				IdleTimeout: DefaultRESPIdle,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
