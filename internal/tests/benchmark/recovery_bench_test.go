package benchmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/storage/block"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
)

// crashedJournal leaves a journal whose WAL holds count records and whose
// main file holds only the header, as after a crash between staging and
// the main write. It returns copies of both files.
func crashedJournal(b *testing.B, count int) (mainSnap, walSnap string) {
	b.Helper()
	j, path := openJournal(b, true,
		storage.WithSyncMode(storage.SyncModeBatch),
		storage.WithSyncEvery(count+1),
		storage.WithTailCache(false))
	payload := newPayload(128)
	for i := 0; i < count; i++ {
		if _, err := j.Append("replay", payload); err != nil {
			b.Fatalf("Append() error = %v", err)
		}
	}

	dir := b.TempDir()
	mainSnap = filepath.Join(dir, "main.snap")
	walSnap = filepath.Join(dir, "wal.snap")
	copyFile(b, path, mainSnap)
	copyFile(b, path+".wal", walSnap)
	if err := os.Truncate(mainSnap, block.HeaderSize); err != nil {
		b.Fatal(err)
	}

	if err := j.Close(); err != nil {
		b.Fatal(err)
	}
	return mainSnap, walSnap
}

// BenchmarkWALReplay benchmarks recovery at various WAL sizes.
func BenchmarkWALReplay(b *testing.B) {
	runWithRecordCounts(b, SmallRecordCounts, func(b *testing.B, count int) {
		mainSnap, walSnap := crashedJournal(b, count)
		path := filepath.Join(b.TempDir(), "replay.rj")

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			b.StopTimer()
			copyFile(b, mainSnap, path)
			copyFile(b, walSnap, path+".wal")
			b.StartTimer()

			j, err := storage.OpenWithWAL(path, benchKey, true,
				storage.WithTailCache(false),
				storage.WithLogger(logger.Discard().Slog()))
			if err != nil {
				b.Fatalf("OpenWithWAL failed: %v", err)
			}

			b.StopTimer()
			if got := j.Recovery().Replayed; got != count {
				b.Fatalf("Replayed = %d, want %d", got, count)
			}
			if err := j.Close(); err != nil {
				b.Fatal(err)
			}
			b.StartTimer()
		}
	})
}
