package benchmark

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
)

// RecordCounts defines the journal sizes for scan benchmarks.
var RecordCounts = []int{1000, 10000, 100000}

// SmallRecordCounts for quick benchmarks.
var SmallRecordCounts = []int{100, 1000, 5000}

// PayloadSizes defines the payload sizes for append benchmarks.
var PayloadSizes = []int{0, 128, 4096, 64 * 1024}

var benchKey = []byte("bench-key-0123456789abcdef")

// newPayload returns size random bytes.
func newPayload(size int) []byte {
	p := make([]byte, size)
	_, _ = rand.Read(p)
	return p
}

// openJournal opens a fresh journal in a temp dir with logging discarded.
func openJournal(b *testing.B, wal bool, opts ...storage.Option) (*storage.Journal, string) {
	b.Helper()
	path := filepath.Join(b.TempDir(), "bench.rj")
	opts = append([]storage.Option{storage.WithLogger(logger.Discard().Slog())}, opts...)
	j, err := storage.OpenWithWAL(path, benchKey, wal, opts...)
	if err != nil {
		b.Fatalf("OpenWithWAL() error = %v", err)
	}
	return j, path
}

// prefillJournal writes count records and closes the journal.
func prefillJournal(b *testing.B, count, payloadSize int) string {
	b.Helper()
	j, path := openJournal(b, false, storage.WithSyncMode(storage.SyncModeBatch), storage.WithSyncEvery(1024))
	payload := newPayload(payloadSize)
	for i := 0; i < count; i++ {
		if _, err := j.Append("prefill", payload); err != nil {
			b.Fatalf("Append() error = %v", err)
		}
	}
	if err := j.Close(); err != nil {
		b.Fatalf("Close() error = %v", err)
	}
	return path
}

// copyFile copies src to dst, replacing dst.
func copyFile(b *testing.B, src, dst string) {
	b.Helper()
	in, err := os.Open(src)
	if err != nil {
		b.Fatal(err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		b.Fatal(err)
	}
	if err := out.Close(); err != nil {
		b.Fatal(err)
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithRecordCounts runs a benchmark function with various journal sizes.
func runWithRecordCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("records_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
