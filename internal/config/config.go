package config

import "time"

// Config is the root configuration for rjournal and rjournald.
type Config struct {
	Journal JournalSection `koanf:"journal" yaml:"journal" json:"journal"`
	Server  ServerSection  `koanf:"server" yaml:"server" json:"server"`
	Log     LogSection     `koanf:"log" yaml:"log" json:"log"`
}

// JournalSection configures the journal file.
type JournalSection struct {
	// Path is the main journal file. The WAL and tail cache live next to it.
	Path string `koanf:"path" yaml:"path" json:"path"`

	// WALEnabled stages every append in <path>.wal before the main write.
	WALEnabled bool `koanf:"wal_enabled" yaml:"wal_enabled" json:"wal_enabled"`

	// SyncMode is "sync" (fsync per append) or "batch".
	SyncMode string `koanf:"sync_mode" yaml:"sync_mode" json:"sync_mode"`

	// SyncEvery is the batch size in batch mode.
	SyncEvery int `koanf:"sync_every" yaml:"sync_every" json:"sync_every"`

	// MaxReasonBytes and MaxPayloadBytes bound new files only.
	MaxReasonBytes  int `koanf:"max_reason_bytes" yaml:"max_reason_bytes" json:"max_reason_bytes"`
	MaxPayloadBytes int `koanf:"max_payload_bytes" yaml:"max_payload_bytes" json:"max_payload_bytes"`

	// Algorithm is the chain MAC for new files: blake3 or hmac-sha256.
	Algorithm string `koanf:"algorithm" yaml:"algorithm" json:"algorithm"`

	// TailCache enables the authenticated tail pointer written on close.
	TailCache bool `koanf:"tail_cache" yaml:"tail_cache" json:"tail_cache"`

	// KeyFile holds the hex key. Key, when set, takes precedence.
	KeyFile string `koanf:"key_file" yaml:"key_file" json:"key_file"`

	// Key is the hex key, optionally prefixed with "rjk_".
	Key string `koanf:"key" yaml:"key" json:"key"`
}

// ServerSection configures daemon endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http" yaml:"http" json:"http"`
	RESP RESPConfig `koanf:"resp" yaml:"resp" json:"resp"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr" yaml:"addr" json:"addr"`
	TLSCertFile string `koanf:"tls_cert_file" yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file" yaml:"tls_key_file" json:"tls_key_file"`

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst" json:"rate_burst"`

	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes" yaml:"max_body_bytes" json:"max_body_bytes"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// RESPConfig configures the Redis protocol listener. It shares the HTTP
// TLS certificate.
type RESPConfig struct {
	// Addr is the listen address. Empty disables the listener.
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`

	// TLS serves the listener with the HTTP certificate.
	TLS bool `koanf:"tls" yaml:"tls" json:"tls"`

	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst" json:"rate_burst"`

	IdleTimeout time.Duration `koanf:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}
