package command

import (
	"crypto/rand"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/reasonjournal/internal/cli/output"
	"github.com/yndnr/reasonjournal/internal/storage"
)

// BenchCommand measures append throughput against the configured journal.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Append synthetic records and report latency",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "records to append",
				Value:   10000,
			},
			&cli.Float64Flag{
				Name:  "rate",
				Usage: "appends per second, 0 for unpaced",
			},
			&cli.IntFlag{
				Name:  "payload-size",
				Usage: "payload bytes per record",
				Value: 128,
			},
			&cli.StringFlag{
				Name:  "reason",
				Usage: "reason tag for synthetic records",
				Value: "bench",
			},
			&cli.StringFlag{
				Name:  "sync-mode",
				Usage: "override journal.sync_mode (sync, batch)",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "hide the progress bar",
			},
		},
		Action: runBench,
	}
}

// BenchResult is the printed result of bench.
type BenchResult struct {
	Records       uint64        `json:"records" yaml:"records"`
	PayloadBytes  int           `json:"payload_bytes" yaml:"payload_bytes"`
	SyncMode      string        `json:"sync_mode" yaml:"sync_mode"`
	WAL           bool          `json:"wal" yaml:"wal"`
	Elapsed       time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
	RecordsPerSec float64       `json:"records_per_sec" yaml:"records_per_sec"`
	AvgLatencyUs  float64       `json:"avg_latency_us" yaml:"avg_latency_us"`
	MaxLatencyUs  float64       `json:"max_latency_us" yaml:"max_latency_us"`
	WriteTimeMs   float64       `json:"write_time_ms" yaml:"write_time_ms"`
}

func runBench(c *cli.Context) error {
	count, size := c.Int("count"), c.Int("payload-size")
	if count < 1 {
		return cli.Exit("--count must be at least 1", ExitFailure)
	}
	if size < 0 {
		return cli.Exit("--payload-size must not be negative", ExitFailure)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	if mode := c.String("sync-mode"); mode != "" {
		if _, err := storage.ParseSyncMode(mode); err != nil {
			return cli.Exit(err.Error(), ExitFailure)
		}
		cfg.Journal.SyncMode = mode
	}

	payload := make([]byte, size)
	if _, err := rand.Read(payload); err != nil {
		return exitError(err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if r := c.Float64("rate"); r > 0 {
		limiter = rate.NewLimiter(rate.Limit(r), 1)
	}

	j, err := openJournal(c, cfg)
	if err != nil {
		return exitError(err)
	}

	var bar *output.ProgressBar
	if tableOutput(c) && !c.Bool("no-progress") {
		bar = output.NewProgressBar(c.App.ErrWriter, "bench")
		bar.SetTotal(int64(count))
	}
	step := max(count/200, 1)

	reason := c.String("reason")
	var maxLatency time.Duration
	start := time.Now()
	for i := 0; i < count; i++ {
		if err := limiter.Wait(c.Context); err != nil {
			j.Close()
			return exitError(err)
		}
		res, err := j.AppendWithLatency(reason, payload)
		if err != nil {
			j.Close()
			return exitError(err)
		}
		maxLatency = max(maxLatency, res.Latency)
		if bar != nil && (i+1)%step == 0 {
			bar.Update(int64(i+1), int64(count))
		}
	}
	if err := j.Sync(); err != nil {
		j.Close()
		return exitError(err)
	}
	elapsed := time.Since(start)
	if bar != nil {
		bar.Finish()
	}

	snap, err := j.Metrics()
	if cerr := j.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return exitError(err)
	}

	return render(c, &BenchResult{
		Records:       snap.TotalBlocks,
		PayloadBytes:  size,
		SyncMode:      cfg.Journal.SyncMode,
		WAL:           cfg.Journal.WALEnabled,
		Elapsed:       elapsed,
		RecordsPerSec: float64(count) / elapsed.Seconds(),
		AvgLatencyUs:  snap.AvgLatencyUs,
		MaxLatencyUs:  float64(maxLatency) / float64(time.Microsecond),
		WriteTimeMs:   snap.WriteTimeMs,
	})
}
