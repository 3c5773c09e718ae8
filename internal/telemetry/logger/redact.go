package logger

import (
	"log/slog"
	"strings"
)

// KeyPrefix marks hex journal keys.
const KeyPrefix = "rjk_"

const redacted = "[REDACTED]"

// Attribute name segments that mark a secret. Names are split on '_', '.'
// and '-'.
var secretSegments = map[string]bool{
	"key":           true,
	"secret":        true,
	"password":      true,
	"passphrase":    true,
	"token":         true,
	"credential":    true,
	"credentials":   true,
	"authorization": true,
}

// Segments that, following "key", describe metadata rather than the key
// itself: key_file, key_size, key_id.
var keyMetadata = map[string]bool{
	"file": true,
	"path": true,
	"size": true,
	"id":   true,
	"len":  true,
}

func redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}

	case slog.KindString:
		v := a.Value.String()
		if strings.HasPrefix(v, KeyPrefix) {
			return slog.String(a.Key, MaskKey(v))
		}
		if v != "" && IsSecretName(a.Key) {
			return slog.String(a.Key, redacted)
		}

	case slog.KindAny:
		if b, ok := a.Value.Any().([]byte); ok && IsSecretName(a.Key) {
			if len(b) == 0 {
				return a
			}
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

// IsSecretName reports whether an attribute name suggests key material.
func IsSecretName(name string) bool {
	parts := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == '.' || r == '-'
	})
	for i, p := range parts {
		if !secretSegments[p] {
			continue
		}
		if p == "key" && i+1 < len(parts) && keyMetadata[parts[i+1]] {
			continue
		}
		return true
	}
	return false
}

// MaskKey keeps the rjk_ prefix and the first four hex digits of a key so
// operators can tell keys apart without exposing them.
func MaskKey(v string) string {
	body := strings.TrimPrefix(v, KeyPrefix)
	if len(body) < 16 {
		return KeyPrefix + "****"
	}
	return KeyPrefix + body[:4] + "****"
}
