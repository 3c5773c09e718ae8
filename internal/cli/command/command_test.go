package command

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/reasonjournal/internal/core/service"
	"github.com/yndnr/reasonjournal/internal/server/httpserver"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
)

const testKey = "rjk_00112233445566778899aabbccddeeff"

type runResult struct {
	stdout string
	stderr string
	err    error
}

// run executes the app with args and captures its output.
func run(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"rjournal"}, args...))
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func journalArgs(path string) []string {
	return []string{"--journal", path, "--key", testKey}
}

func TestApp_Commands(t *testing.T) {
	app := App()
	names := map[string]bool{}
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"append", "verify", "dump", "recover", "bench", "remote", "keygen", "version"} {
		if !names[want] {
			t.Errorf("missing command %q", want)
		}
	}
}

func TestAppendVerifyDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.rj")
	base := journalArgs(path)

	for i, payload := range []string{"first", "second", "third"} {
		res := run(t, "", append(base, "-o", "json", "append", "-r", "login", payload)...)
		if res.err != nil {
			t.Fatalf("append %d: %v (%s)", i, res.err, res.stderr)
		}
		var v AppendView
		if err := json.Unmarshal([]byte(res.stdout), &v); err != nil {
			t.Fatalf("decode append output %q: %v", res.stdout, err)
		}
		if v.Sequence != uint64(i) || len(v.ChainTag) != 64 {
			t.Errorf("append %d = %+v", i, v)
		}
	}

	res := run(t, "", append(base, "-o", "json", "verify")...)
	if res.err != nil {
		t.Fatalf("verify: %v", res.err)
	}
	var report storage.VerifyReport
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Valid || report.Records != 3 {
		t.Errorf("report = %+v", report)
	}

	res = run(t, "", "--journal", path, "-o", "json", "dump", "--from", "1", "--payload")
	if res.err != nil {
		t.Fatalf("dump: %v", res.err)
	}
	var views []RecordView
	sc := bufio.NewScanner(strings.NewReader(res.stdout))
	for sc.Scan() {
		var v RecordView
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			t.Fatalf("decode dump line %q: %v", sc.Text(), err)
		}
		views = append(views, v)
	}
	if len(views) != 2 || views[0].Sequence != 1 || views[1].Payload != "third" || views[1].Encoding != "text" {
		t.Errorf("dump = %+v", views)
	}

	res = run(t, "", "--journal", path, "dump", "--limit", "1")
	if res.err != nil {
		t.Fatalf("dump table: %v", res.err)
	}
	if lines := strings.Count(res.stdout, "\n"); lines != 2 {
		t.Errorf("table dump has %d lines, want header + 1:\n%s", lines, res.stdout)
	}
	if strings.Contains(res.stdout, "CHAIN_TAG") {
		t.Error("chain tag column should need --wide")
	}
}

func TestAppend_PayloadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.rj")
	file := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(file, []byte{0xff, 0x00, 0x01}, 0o600); err != nil {
		t.Fatal(err)
	}

	if res := run(t, "from stdin", append(journalArgs(path), "append", "-r", "a", "-f", "-")...); res.err != nil {
		t.Fatalf("stdin append: %v", res.err)
	}
	if res := run(t, "", append(journalArgs(path), "append", "-r", "b", "-f", file)...); res.err != nil {
		t.Fatalf("file append: %v", res.err)
	}
	res := run(t, "", append(journalArgs(path), "append", "-r", "c", "-f", file, "extra")...)
	if exitCode(res.err) != ExitFailure {
		t.Errorf("argument plus --file: exit = %d, want %d", exitCode(res.err), ExitFailure)
	}

	res = run(t, "", "--journal", path, "-o", "yaml", "dump", "--payload")
	if res.err != nil {
		t.Fatalf("dump: %v", res.err)
	}
	for _, want := range []string{"payload: from stdin", "payload_encoding: base64", "payload: /wAB"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("yaml dump missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestVerify_TamperExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tamper.rj")
	for i := 0; i < 3; i++ {
		if res := run(t, "", append(journalArgs(path), "append", "-r", "x", "data")...); res.err != nil {
			t.Fatal(res.err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0x01
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	res := run(t, "", append(journalArgs(path), "verify", "-q")...)
	if got := exitCode(res.err); got != ExitCorruption {
		t.Fatalf("exit = %d, want %d (%v)", got, ExitCorruption, res.err)
	}
	if res.stdout != "" {
		t.Errorf("quiet verify printed %q", res.stdout)
	}

	res = run(t, "", append([]string{"--journal", path, "--key", "rjk_ffeeddccbbaa99887766554433221100"}, "verify", "-q")...)
	if got := exitCode(res.err); got != ExitCorruption {
		t.Errorf("wrong key exit = %d, want %d", got, ExitCorruption)
	}
}

func TestRecover_CleanJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.rj")
	if res := run(t, "", append(journalArgs(path), "append", "-r", "x")...); res.err != nil {
		t.Fatal(res.err)
	}

	res := run(t, "", append(journalArgs(path), "-o", "json", "recover")...)
	if res.err != nil {
		t.Fatalf("recover: %v", res.err)
	}
	var v RecoveryView
	if err := json.Unmarshal([]byte(res.stdout), &v); err != nil {
		t.Fatal(err)
	}
	if v.Status != storage.RecoveryNotNeeded.String() || v.NextSequence != 1 || v.Replayed != 0 {
		t.Errorf("recover = %+v", v)
	}
}

func TestBench(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.rj")
	res := run(t, "", append(journalArgs(path),
		"-o", "json", "bench", "-n", "50", "--payload-size", "32", "--sync-mode", "batch")...)
	if res.err != nil {
		t.Fatalf("bench: %v (%s)", res.err, res.stderr)
	}
	var r BenchResult
	if err := json.Unmarshal([]byte(res.stdout), &r); err != nil {
		t.Fatal(err)
	}
	if r.Records != 50 || r.SyncMode != "batch" || r.RecordsPerSec <= 0 {
		t.Errorf("bench = %+v", r)
	}

	if res := run(t, "", append(journalArgs(path), "verify", "-q")...); res.err != nil {
		t.Errorf("verify after bench: %v", res.err)
	}

	res = run(t, "", append(journalArgs(path), "bench", "-n", "0")...)
	if exitCode(res.err) != ExitFailure {
		t.Errorf("count 0 exit = %d", exitCode(res.err))
	}
}

func TestBench_ProgressOnStderr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.rj")
	res := run(t, "", append(journalArgs(path), "bench", "-n", "20", "--sync-mode", "batch")...)
	if res.err != nil {
		t.Fatalf("bench: %v", res.err)
	}
	if !strings.Contains(res.stderr, "(20/20)") {
		t.Errorf("stderr = %q", res.stderr)
	}
	if !strings.Contains(res.stdout, "records_per_sec") {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestKeygen(t *testing.T) {
	res := run(t, "", "keygen", "--size", "16")
	if res.err != nil {
		t.Fatal(res.err)
	}
	key := strings.TrimSpace(res.stdout)
	if !strings.HasPrefix(key, "rjk_") || len(key) != 4+32 {
		t.Errorf("key = %q", key)
	}

	dir := t.TempDir()
	keyFile := filepath.Join(dir, "journal.key")
	if res := run(t, "", "keygen", "--write", keyFile); res.err != nil {
		t.Fatal(res.err)
	}
	info, err := os.Stat(keyFile)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	if res := run(t, "", "keygen", "--write", keyFile); exitCode(res.err) != ExitFailure {
		t.Error("keygen must not overwrite an existing key file")
	}

	path := filepath.Join(dir, "kf.rj")
	if res := run(t, "", "--journal", path, "--key-file", keyFile, "append", "-r", "k"); res.err != nil {
		t.Fatalf("append with key file: %v", res.err)
	}
	if res := run(t, "", "--journal", path, "--key-file", keyFile, "verify", "-q"); res.err != nil {
		t.Errorf("verify with key file: %v", res.err)
	}

	if res := run(t, "", "keygen", "--size", "4"); exitCode(res.err) != ExitFailure {
		t.Error("short keys must be rejected")
	}
}

func TestRemote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remote.rj")
	j, err := storage.OpenWithWAL(path, []byte("daemon-key"), true,
		storage.WithLogger(logger.Discard().Slog()))
	if err != nil {
		t.Fatal(err)
	}
	svc := service.NewJournalService(j)
	defer svc.Close()

	cfg := httpserver.DefaultRouterConfig()
	cfg.Service = svc
	cfg.Logger = logger.Discard().Slog()
	cfg.EnableAudit = false
	srv := httptest.NewServer(httpserver.NewRouter(cfg))
	defer srv.Close()

	res := run(t, "", "-o", "json", "remote", "--server", srv.URL, "append", "-r", "api", "hello")
	if res.err != nil {
		t.Fatalf("remote append: %v", res.err)
	}
	var appended service.AppendResponse
	if err := json.Unmarshal([]byte(res.stdout), &appended); err != nil {
		t.Fatal(err)
	}
	if appended.Sequence != 0 {
		t.Errorf("sequence = %d", appended.Sequence)
	}

	res = run(t, "", "-o", "json", "remote", "--server", srv.URL, "stats")
	if res.err != nil || !strings.Contains(res.stdout, `"next_sequence": 1`) {
		t.Errorf("remote stats: %v %s", res.err, res.stdout)
	}

	if res := run(t, "", "remote", "--server", srv.URL, "verify"); res.err != nil {
		t.Errorf("remote verify: %v", res.err)
	}
	if res := run(t, "", "remote", "--server", srv.URL, "ready"); res.err != nil {
		t.Errorf("remote ready: %v", res.err)
	}

	svc.Close()
	res = run(t, "", "remote", "--server", srv.URL, "ready")
	if exitCode(res.err) != ExitFailure {
		t.Errorf("ready after close: exit = %d (%v)", exitCode(res.err), res.err)
	}
}

func TestVersionAndOutputFormat(t *testing.T) {
	res := run(t, "", "version")
	if res.err != nil || !strings.HasPrefix(res.stdout, "rjournal ") {
		t.Errorf("version = %q, %v", res.stdout, res.err)
	}

	res = run(t, "", "-o", "yaml", "version")
	if res.err != nil || !strings.Contains(res.stdout, "go_version:") {
		t.Errorf("yaml version = %q, %v", res.stdout, res.err)
	}

	res = run(t, "", "-o", "xml", "version")
	if exitCode(res.err) != ExitFailure {
		t.Errorf("bad format exit = %d", exitCode(res.err))
	}
}
