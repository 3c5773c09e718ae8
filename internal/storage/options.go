package storage

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/telemetry/metric"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

// SyncMode defines when the main journal file is fsynced.
type SyncMode string

const (
	// SyncModeSync fsyncs after every append.
	SyncModeSync SyncMode = "sync"

	// SyncModeBatch fsyncs every SyncEvery appends and on close.
	SyncModeBatch SyncMode = "batch"
)

// Default configuration values.
const (
	DefaultSyncMode  = SyncModeSync
	DefaultSyncEvery = 64
	DefaultFilePerm  = 0600
)

// ParseSyncMode maps a configuration value to a SyncMode.
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SyncModeSync:
		return SyncModeSync, nil
	case SyncModeBatch:
		return SyncModeBatch, nil
	default:
		return "", fmt.Errorf("storage: unknown sync mode %q", s)
	}
}

// Options configures a journal context.
type Options struct {
	// SyncMode selects the durability policy.
	SyncMode SyncMode

	// SyncEvery is the batch size for SyncModeBatch.
	SyncEvery int

	// Limits bound new files. Existing files keep the limits in their header.
	Limits domain.Limits

	// Algorithm is the MAC for new files. Existing files keep theirs.
	Algorithm mac.Algorithm

	// TailCache enables the authenticated tail pointer written on close.
	TailCache bool

	// FilePerm is the permission for newly created files.
	FilePerm os.FileMode

	// Logger is the structured logger.
	Logger *slog.Logger

	// Observer receives append, recovery and verify events.
	Observer metric.Observer

	// Now supplies record timestamps.
	Now func() time.Time
}

// DefaultOptions returns the default journal options.
func DefaultOptions() Options {
	return Options{
		SyncMode:  DefaultSyncMode,
		SyncEvery: DefaultSyncEvery,
		Limits:    domain.DefaultLimits(),
		Algorithm: mac.DefaultAlgorithm,
		TailCache: true,
		FilePerm:  DefaultFilePerm,
		Logger:    slog.Default(),
		Observer:  metric.NopObserver{},
		Now:       time.Now,
	}
}

// Option configures Options.
type Option func(*Options)

// WithSyncMode sets the durability policy.
func WithSyncMode(mode SyncMode) Option {
	return func(o *Options) {
		o.SyncMode = mode
	}
}

// WithSyncEvery sets the batch size for SyncModeBatch.
func WithSyncEvery(n int) Option {
	return func(o *Options) {
		o.SyncEvery = n
	}
}

// WithLimits sets the record limits for newly created files.
func WithLimits(l domain.Limits) Option {
	return func(o *Options) {
		o.Limits = l
	}
}

// WithAlgorithm sets the MAC algorithm for newly created files.
func WithAlgorithm(alg mac.Algorithm) Option {
	return func(o *Options) {
		o.Algorithm = alg
	}
}

// WithTailCache enables or disables the tail pointer sidecar.
func WithTailCache(enabled bool) Option {
	return func(o *Options) {
		o.TailCache = enabled
	}
}

// WithFilePerm sets the permission for newly created files.
func WithFilePerm(perm os.FileMode) Option {
	return func(o *Options) {
		o.FilePerm = perm
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithObserver sets the metrics observer.
func WithObserver(obs metric.Observer) Option {
	return func(o *Options) {
		o.Observer = obs
	}
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

func buildOptions(opts []Option) (Options, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.SyncMode == "" {
		o.SyncMode = DefaultSyncMode
	}
	if o.SyncMode != SyncModeSync && o.SyncMode != SyncModeBatch {
		return o, fmt.Errorf("storage: unknown sync mode %q", o.SyncMode)
	}
	if o.SyncEvery <= 0 {
		o.SyncEvery = DefaultSyncEvery
	}
	if o.Algorithm == 0 {
		o.Algorithm = mac.DefaultAlgorithm
	}
	if !o.Algorithm.Valid() {
		return o, fmt.Errorf("storage: %w: %s", mac.ErrUnknownAlgorithm, o.Algorithm)
	}
	o.Limits = o.Limits.Normalize()
	if o.FilePerm == 0 {
		o.FilePerm = DefaultFilePerm
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Observer == nil {
		o.Observer = metric.NopObserver{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o, nil
}
