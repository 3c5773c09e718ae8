package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "RJOURNAL_"

// EnvSectionSeparator separates nesting levels in environment variable
// names. A single underscore stays part of the key.
const EnvSectionSeparator = "__"

// Loader merges the configuration file, the environment and overrides
// over the defaults held by the target struct.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
	loaded    bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML file to read. Empty means none.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithOverrides sets dotted keys applied after every other source, such
// as command-line flags.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) { l.overrides = values }
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// source is one configuration layer. Later layers win.
type source struct {
	name string
	load func() error
}

func (l *Loader) sources() []source {
	layers := []source{
		{"file", func() error { return l.LoadFile(l.filePath) }},
		{"env", l.LoadEnv},
	}
	if len(l.overrides) > 0 {
		layers = append(layers, source{"overrides", func() error { return l.LoadMap(l.overrides) }})
	}
	return layers
}

// Load reads every source into target. Fields no source mentions keep
// the values target already holds.
func (l *Loader) Load(target any) error {
	for _, src := range l.sources() {
		if err := src.load(); err != nil {
			return err
		}
	}
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	l.loaded = true
	return nil
}

// Reload discards everything loaded so far and loads again into target.
// The watcher calls it after the configuration file changes.
func (l *Loader) Reload(target any) error {
	l.k = koanf.New(".")
	l.loaded = false
	return l.Load(target)
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges prefixed environment variables.
// RJOURNAL_JOURNAL__SYNC_MODE=batch sets journal.sync_mode.
func (l *Loader) LoadEnv() error {
	if err := l.k.Load(env.Provider(l.envPrefix, ".", l.envKey), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func (l *Loader) envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
	return strings.ReplaceAll(name, EnvSectionSeparator, ".")
}

// LoadMap merges a map of dotted keys.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	return nil
}

// String returns the merged value of key as a string.
func (l *Loader) String(key string) string { return l.k.String(key) }

// Int returns the merged value of key as an int.
func (l *Loader) Int(key string) int { return l.k.Int(key) }

// Bool returns the merged value of key as a bool.
func (l *Loader) Bool(key string) bool { return l.k.Bool(key) }

// IsLoaded reports whether Load has succeeded.
func (l *Loader) IsLoaded() bool { return l.loaded }

// Keys returns every merged key, flattened.
func (l *Loader) Keys() []string { return l.k.Keys() }
