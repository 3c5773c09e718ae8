package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage"
)

func TestDefault_Verifies(t *testing.T) {
	if err := Verify(Default()); err != nil {
		t.Fatalf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty path", func(c *Config) { c.Journal.Path = " " }, "journal.path"},
		{"bad sync mode", func(c *Config) { c.Journal.SyncMode = "often" }, "journal.sync_mode"},
		{"zero sync every", func(c *Config) { c.Journal.SyncEvery = 0 }, "journal.sync_every"},
		{"reason too large", func(c *Config) { c.Journal.MaxReasonBytes = 70000 }, "journal.max_reason_bytes"},
		{"payload zero", func(c *Config) { c.Journal.MaxPayloadBytes = 0 }, "journal.max_payload_bytes"},
		{"bad algorithm", func(c *Config) { c.Journal.Algorithm = "md5" }, "journal.algorithm"},
		{"both keys", func(c *Config) { c.Journal.Key = "00"; c.Journal.KeyFile = "/k" }, "mutually exclusive"},
		{"no addr", func(c *Config) { c.Server.HTTP.Addr = "" }, "server.http.addr"},
		{"half tls", func(c *Config) { c.Server.HTTP.TLSCertFile = "/c" }, "tls_key_file"},
		{"negative rate", func(c *Config) { c.Server.HTTP.RateLimit = -1 }, "rate_limit"},
		{"no burst", func(c *Config) { c.Server.HTTP.RateBurst = 0 }, "rate_burst"},
		{"resp same addr", func(c *Config) { c.Server.RESP.Addr = c.Server.HTTP.Addr }, "server.resp.addr"},
		{"resp tls without cert", func(c *Config) { c.Server.RESP.Addr = ":5481"; c.Server.RESP.TLS = true }, "server.resp.tls"},
		{"resp no burst", func(c *Config) { c.Server.RESP.Addr = ":5481"; c.Server.RESP.RateBurst = 0 }, "server.resp.rate_burst"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Journal.Key = "rjk_00112233445566778899"

	s := Sanitize(cfg)
	if strings.Contains(s.Journal.Key, "445566") {
		t.Errorf("Sanitize() leaked key: %q", s.Journal.Key)
	}
	if !strings.HasPrefix(s.Journal.Key, "rjk_") {
		t.Errorf("Sanitize() = %q, want prefix kept", s.Journal.Key)
	}
	if cfg.Journal.Key != "rjk_00112233445566778899" {
		t.Error("Sanitize() modified the original")
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"6b33792d38627974", "k3y-8byt", false},
		{"rjk_6b33792d38627974\n", "k3y-8byt", false},
		{"", "", true},
		{"rjk_", "", true},
		{"zz", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, domain.ErrKeyInvalid) {
			t.Errorf("ParseKey(%q) error = %v, want ErrKeyInvalid", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("ParseKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadKey(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "journal.key")
	if err := os.WriteFile(keyFile, []byte("rjk_6b33792d38627974\n"), 0600); err != nil {
		t.Fatal(err)
	}

	key, err := LoadKey(&JournalSection{KeyFile: keyFile})
	if err != nil {
		t.Fatalf("LoadKey() error = %v", err)
	}
	if string(key.Bytes()) != "k3y-8byt" {
		t.Errorf("LoadKey() = %q", key.Bytes())
	}
	key.Close()
	if !key.Closed() {
		t.Error("key buffer not closed")
	}

	inline, err := LoadKey(&JournalSection{Key: "rjk_6b33792d38627974"})
	if err != nil {
		t.Fatalf("LoadKey(inline) error = %v", err)
	}
	defer inline.Close()
	if string(inline.Bytes()) != "k3y-8byt" {
		t.Errorf("LoadKey(inline) = %q", inline.Bytes())
	}

	if _, err := LoadKey(&JournalSection{}); !errors.Is(err, domain.ErrKeyInvalid) {
		t.Errorf("LoadKey(empty) error = %v, want ErrKeyInvalid", err)
	}
	if _, err := LoadKey(&JournalSection{KeyFile: keyFile + ".missing"}); !errors.Is(err, domain.ErrKeyInvalid) {
		t.Errorf("LoadKey(missing) error = %v, want ErrKeyInvalid", err)
	}
}

func TestGenerateKey(t *testing.T) {
	s, err := GenerateKey(DefaultKeySize)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	key, err := ParseKey(s)
	if err != nil {
		t.Fatalf("ParseKey(GenerateKey()) error = %v", err)
	}
	if len(key) != DefaultKeySize {
		t.Errorf("key length = %d, want %d", len(key), DefaultKeySize)
	}
	if _, err := GenerateKey(4); err == nil {
		t.Error("GenerateKey(4) should fail")
	}
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rjournal.yaml")
	content := `
journal:
  path: /tmp/x.rj
  sync_mode: batch
server:
  http:
    shutdown_timeout: 3s
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RJOURNAL_JOURNAL__SYNC_EVERY", "8")

	cfg, _, err := Load(file)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Journal.Path != "/tmp/x.rj" || cfg.Journal.SyncMode != "batch" || cfg.Journal.SyncEvery != 8 {
		t.Errorf("Journal = %+v", cfg.Journal)
	}
	if cfg.Server.HTTP.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 3s", cfg.Server.HTTP.ShutdownTimeout)
	}
	if !cfg.Journal.TailCache || cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Error("defaults not kept")
	}

	t.Setenv("RJOURNAL_JOURNAL__SYNC_EVERY", "0")
	if _, _, err := Load(file); err == nil {
		t.Error("Load() should reject sync_every 0")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rjournal.yaml")
	content := "journal:\n  path: from-file.rj\n  key_file: /etc/rj.key\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RJOURNAL_JOURNAL__PATH", "from-env.rj")

	cfg, _, err := LoadWithOverrides(file, map[string]any{
		"journal.path":     "from-flag.rj",
		"journal.key":      strings.Repeat("ab", 32),
		"journal.key_file": "",
	})
	if err != nil {
		t.Fatalf("LoadWithOverrides() error = %v", err)
	}
	if cfg.Journal.Path != "from-flag.rj" {
		t.Errorf("Path = %q, want from-flag.rj", cfg.Journal.Path)
	}
	if cfg.Journal.KeyFile != "" || cfg.Journal.Key == "" {
		t.Errorf("key override not applied: key_file=%q", cfg.Journal.KeyFile)
	}
}

func TestStorageOptions(t *testing.T) {
	j := Default().Journal
	opts, err := j.StorageOptions()
	if err != nil {
		t.Fatalf("StorageOptions() error = %v", err)
	}
	if len(opts) == 0 {
		t.Fatal("StorageOptions() returned no options")
	}

	path := filepath.Join(t.TempDir(), "opts.rj")
	jr, err := storage.Open(path, []byte("k3y-8byt"), opts...)
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	defer jr.Close()
	if jr.Header().Limits.MaxReasonLen != j.MaxReasonBytes {
		t.Errorf("MaxReasonLen = %d, want %d", jr.Header().Limits.MaxReasonLen, j.MaxReasonBytes)
	}

	j.SyncMode = "never"
	if _, err := j.StorageOptions(); err == nil {
		t.Error("StorageOptions() should reject unknown sync mode")
	}
}
