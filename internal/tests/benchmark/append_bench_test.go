package benchmark

import (
	"fmt"
	"testing"

	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

// BenchmarkAppend benchmarks appends across sync modes and WAL settings.
func BenchmarkAppend(b *testing.B) {
	cases := []struct {
		name string
		wal  bool
		opts []storage.Option
	}{
		{"sync", false, []storage.Option{storage.WithSyncMode(storage.SyncModeSync)}},
		{"sync_wal", true, []storage.Option{storage.WithSyncMode(storage.SyncModeSync)}},
		{"batch", false, []storage.Option{storage.WithSyncMode(storage.SyncModeBatch)}},
		{"batch_wal", true, []storage.Option{storage.WithSyncMode(storage.SyncModeBatch)}},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			j, _ := openJournal(b, tc.wal, tc.opts...)
			defer j.Close()
			payload := newPayload(128)

			b.SetBytes(int64(len(payload)))
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := j.Append("bench", payload); err != nil {
					b.Fatalf("Append failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkAppend_PayloadSize benchmarks batch appends at various payload sizes.
func BenchmarkAppend_PayloadSize(b *testing.B) {
	for _, size := range PayloadSizes {
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			j, _ := openJournal(b, false, storage.WithSyncMode(storage.SyncModeBatch))
			defer j.Close()
			payload := newPayload(size)

			b.SetBytes(int64(size))
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := j.Append("bench", payload); err != nil {
					b.Fatalf("Append failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkAppend_Algorithm compares the chain MACs.
func BenchmarkAppend_Algorithm(b *testing.B) {
	for _, alg := range []mac.Algorithm{mac.AlgBLAKE3, mac.AlgHMACSHA256} {
		b.Run(alg.String(), func(b *testing.B) {
			j, _ := openJournal(b, false,
				storage.WithSyncMode(storage.SyncModeBatch),
				storage.WithSyncEvery(4096),
				storage.WithAlgorithm(alg))
			defer j.Close()
			payload := newPayload(1024)

			b.SetBytes(int64(len(payload)))
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := j.Append("bench", payload); err != nil {
					b.Fatalf("Append failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkAppend_Memory reports memory after a burst of appends.
func BenchmarkAppend_Memory(b *testing.B) {
	runWithRecordCounts(b, SmallRecordCounts, func(b *testing.B, count int) {
		payload := newPayload(256)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			j, _ := openJournal(b, true, storage.WithSyncMode(storage.SyncModeBatch))
			b.StartTimer()
			for n := 0; n < count; n++ {
				if _, err := j.Append("bench", payload); err != nil {
					b.Fatalf("Append failed: %v", err)
				}
			}
			b.StopTimer()
			if err := j.Close(); err != nil {
				b.Fatal(err)
			}
			b.StartTimer()
		}
		b.StopTimer()
		reportMemory(b, "after")
	})
}
