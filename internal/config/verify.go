package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	return errors.Join(
		verifyJournal(&cfg.Journal),
		verifyHTTP(&cfg.Server.HTTP),
		verifyRESP(&cfg.Server.RESP, &cfg.Server.HTTP),
		verifyLog(&cfg.Log),
	)
}

func verifyJournal(cfg *JournalSection) error {
	var errs []error
	if strings.TrimSpace(cfg.Path) == "" {
		errs = append(errs, errors.New("journal.path is required"))
	}
	if _, err := storage.ParseSyncMode(cfg.SyncMode); err != nil {
		errs = append(errs, fmt.Errorf("journal.sync_mode: %w", err))
	}
	if cfg.SyncEvery < 1 {
		errs = append(errs, errors.New("journal.sync_every must be at least 1"))
	}
	if cfg.MaxReasonBytes < 1 || cfg.MaxReasonBytes > domain.HardMaxReasonLen {
		errs = append(errs, fmt.Errorf("journal.max_reason_bytes must be in [1, %d]", domain.HardMaxReasonLen))
	}
	if cfg.MaxPayloadBytes < 1 || uint64(cfg.MaxPayloadBytes) > uint64(domain.HardMaxPayloadLen) {
		errs = append(errs, fmt.Errorf("journal.max_payload_bytes must be in [1, %d]", uint64(domain.HardMaxPayloadLen)))
	}
	if _, err := mac.ParseAlgorithm(cfg.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("journal.algorithm: %w", err))
	}
	if cfg.Key != "" && cfg.KeyFile != "" {
		errs = append(errs, errors.New("journal.key and journal.key_file are mutually exclusive"))
	}
	return errors.Join(errs...)
}

func verifyHTTP(cfg *HTTPConfig) error {
	var errs []error
	if cfg.Addr == "" {
		errs = append(errs, errors.New("server.http.addr is required"))
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("server.http.rate_limit must not be negative"))
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		errs = append(errs, errors.New("server.http.rate_burst must be at least 1 when rate_limit is set"))
	}
	if cfg.MaxBodyBytes < 1 {
		errs = append(errs, errors.New("server.http.max_body_bytes must be at least 1"))
	}
	return errors.Join(errs...)
}

func verifyRESP(cfg *RESPConfig, http *HTTPConfig) error {
	if cfg.Addr == "" {
		return nil
	}
	var errs []error
	if cfg.Addr == http.Addr {
		errs = append(errs, errors.New("server.resp.addr must differ from server.http.addr"))
	}
	if cfg.TLS && http.TLSCertFile == "" {
		errs = append(errs, errors.New("server.resp.tls requires server.http.tls_cert_file"))
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("server.resp.rate_limit must not be negative"))
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		errs = append(errs, errors.New("server.resp.rate_burst must be at least 1 when rate_limit is set"))
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", cfg.Format))
	}
	return errors.Join(errs...)
}
