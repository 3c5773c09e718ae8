package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
)

var testKey = []byte("k3y-8byt")

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "journal.rj")
}

func quiet(opts ...Option) []Option {
	return append([]Option{WithLogger(logger.Discard().Slog())}, opts...)
}

func openTest(t *testing.T, path string, walEnabled bool, opts ...Option) *Journal {
	t.Helper()
	j, err := OpenWithWAL(path, testKey, walEnabled, quiet(opts...)...)
	require.NoError(t, err)
	return j
}

// abandon drops a context without Close, as a crash would: handles are
// released but nothing is flushed, checkpointed or cached.
func abandon(t *testing.T, j *Journal) {
	t.Helper()
	if j.wal != nil {
		require.NoError(t, j.wal.Close())
		j.wal = nil
	}
	require.NoError(t, j.file.Close())
	j.file = nil
	require.NoError(t, j.mac.Close())
	j.mac = nil
	j.state = StateClosed
}

// stageOnly writes n records to the WAL without touching the main file,
// leaving the context as if it crashed right after staging.
func stageOnly(t *testing.T, j *Journal, n int) []*domain.Record {
	t.Helper()
	require.NotNil(t, j.wal, "stageOnly needs a WAL")

	st := j.st
	out := make([]*domain.Record, 0, n)
	for i := 0; i < n; i++ {
		rec := &domain.Record{
			Sequence:  st.NextSequence,
			ReasonTag: "staged",
			Payload:   []byte{byte(i), byte(i >> 8)},
			Timestamp: st.LastTimestamp + 1,
		}
		j.chain.Seal(&st, rec)
		require.NoError(t, j.wal.Stage(rec))
		out = append(out, rec)
	}
	return out
}

func appendN(t *testing.T, j *Journal, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := j.Append("test", []byte{byte(i)})
		require.NoError(t, err)
	}
}

// steppingClock returns times from a list, then repeats the last one.
func steppingClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}
