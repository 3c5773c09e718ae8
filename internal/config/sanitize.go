package config

import "strings"

// Sanitize returns a copy of the config with key material masked.
//
// This is used for logging and printing configuration.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	if sanitized.Journal.Key != "" {
		sanitized.Journal.Key = maskSecret(sanitized.Journal.Key)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-6) + s[len(s)-2:]
}
