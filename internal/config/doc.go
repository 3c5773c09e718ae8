// Package config defines the reason journal configuration.
//
//   - config.go: Config struct definition
//   - default.go: Default configuration values
//   - load.go: Loading through confloader, with flag overrides
//   - verify.go: Validation of values before use
//   - sanitize.go: Masking of key material for logging
//   - key.go: Loading the journal key from config or a key file
//
// Configuration is merged from a YAML file, RJOURNAL_ environment
// variables and command-line overrides by internal/infra/confloader.
package config
