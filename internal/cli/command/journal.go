package command

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/reasonjournal/internal/cli/output"
	"github.com/yndnr/reasonjournal/internal/config"
	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage"
)

// AppendCommand appends one record to the local journal.
func AppendCommand() *cli.Command {
	return &cli.Command{
		Name:      "append",
		Usage:     "Append a record",
		ArgsUsage: "[payload]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "reason",
				Aliases:  []string{"r"},
				Usage:    "reason tag",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "read the payload from a file, - for stdin",
			},
		},
		Action: runAppend,
	}
}

// AppendView is the printed result of append.
type AppendView struct {
	Sequence  uint64        `json:"sequence" yaml:"sequence"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	ChainTag  string        `json:"chain_tag" yaml:"chain_tag"`
	Bytes     int           `json:"payload_bytes" yaml:"payload_bytes"`
	Latency   time.Duration `json:"latency_ns" yaml:"latency_ns"`
}

func runAppend(c *cli.Context) error {
	payload, err := readPayload(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitFailure)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	j, err := openJournal(c, cfg)
	if err != nil {
		return exitError(err)
	}

	res, err := j.AppendWithLatency(c.String("reason"), payload)
	if cerr := j.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return exitError(err)
	}

	return render(c, &AppendView{
		Sequence:  res.Record.Sequence,
		Timestamp: res.Record.Time(),
		ChainTag:  res.Record.ChainTag.String(),
		Bytes:     len(res.Record.Payload),
		Latency:   res.Latency,
	})
}

// readPayload takes the payload from --file or the first argument.
func readPayload(c *cli.Context) ([]byte, error) {
	file := c.String("file")
	if file != "" && c.Args().Present() {
		return nil, errors.New("give the payload as an argument or with --file, not both")
	}
	switch file {
	case "":
		return []byte(c.Args().First()), nil
	case "-":
		return io.ReadAll(c.App.Reader)
	default:
		return os.ReadFile(file)
	}
}

// VerifyCommand checks the chain of a journal file.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify every record of the journal",
		Description: "Verification is read-only and does not take the journal lock, " +
			"so it can run against a file a daemon is appending to.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "no spinner, print only on failure",
			},
		},
		Action: runVerify,
	}
}

func runVerify(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	key, err := config.LoadKey(&cfg.Journal)
	if err != nil {
		return exitError(err)
	}
	defer key.Close()

	quiet := c.Bool("quiet")
	var spin *output.Spinner
	if tableOutput(c) && !quiet {
		spin = output.NewSpinner(c.App.ErrWriter, "verifying "+cfg.Journal.Path)
		spin.Start()
	}

	report, err := storage.VerifyFile(cfg.Journal.Path, key.Bytes())
	if err != nil {
		if spin != nil {
			spin.Fail("verification failed")
		}
		var corrupt *domain.CorruptionError
		if errors.As(err, &corrupt) && report != nil && !quiet {
			_ = render(c, report)
		}
		return exitError(err)
	}
	if spin != nil {
		spin.Success(fmt.Sprintf("%d records verified", report.Records))
	}
	if quiet {
		return nil
	}
	return render(c, report)
}

// DumpCommand lists records without checking tags.
func DumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "List records (structure only, no key needed)",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "from",
				Usage: "first sequence to print",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "stop after this many records, 0 for all",
			},
			&cli.BoolFlag{
				Name:  "payload",
				Usage: "include payloads (text when UTF-8, base64 otherwise)",
			},
		},
		Action: runDump,
	}
}

// RecordView is one dumped record.
type RecordView struct {
	Sequence  uint64    `json:"sequence" yaml:"sequence"`
	ReasonTag string    `json:"reason_tag" yaml:"reason_tag"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Bytes     int       `json:"payload_bytes" yaml:"payload_bytes"`
	Payload   string    `json:"payload,omitempty" yaml:"payload,omitempty" table:"wide"`
	Encoding  string    `json:"payload_encoding,omitempty" yaml:"payload_encoding,omitempty" table:"wide"`
	ChainTag  string    `json:"chain_tag" yaml:"chain_tag" table:"wide"`
	Offset    int64     `json:"offset" yaml:"offset" table:"wide"`
}

// errStop ends an Iterate walk early.
var errStop = errors.New("stop")

func runDump(c *cli.Context) error {
	path := c.String("journal")
	if path == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return exitError(err)
		}
		path = cfg.Journal.Path
	}

	from, limit, withPayload := c.Uint64("from"), c.Int("limit"), c.Bool("payload")

	// JSON streams one object per line so large journals dump in constant memory.
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return cli.Exit(err.Error(), ExitFailure)
	}
	streaming := format == output.FormatJSON
	rows := []RecordView{}
	emit := func(v RecordView) error {
		rows = append(rows, v)
		return nil
	}
	if streaming {
		f := &output.JSONFormatter{Compact: true}
		emit = func(v RecordView) error { return f.Format(c.App.Writer, v) }
	}

	n := 0
	err = storage.Iterate(path, func(rec *domain.Record, offset int64) error {
		if rec.Sequence < from {
			return nil
		}
		if limit > 0 && n >= limit {
			return errStop
		}
		n++
		v := RecordView{
			Sequence:  rec.Sequence,
			ReasonTag: rec.ReasonTag,
			Timestamp: rec.Time(),
			Bytes:     len(rec.Payload),
			ChainTag:  rec.ChainTag.String(),
			Offset:    offset,
		}
		if withPayload && len(rec.Payload) > 0 {
			v.Payload, v.Encoding = encodePayload(rec.Payload)
		}
		return emit(v)
	})
	if err != nil && !errors.Is(err, errStop) {
		if !streaming && len(rows) > 0 {
			_ = render(c, rows)
		}
		return exitError(err)
	}
	if streaming {
		return nil
	}
	return render(c, rows)
}

func encodePayload(p []byte) (string, string) {
	if utf8.Valid(p) {
		return string(p), "text"
	}
	return base64.StdEncoding.EncodeToString(p), "base64"
}

// RecoverCommand runs crash recovery and reports what it did.
func RecoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "recover",
		Usage: "Replay the WAL into the journal and repair a torn tail",
		Description: "Recovery runs on every open; this command does only that and " +
			"reports the outcome. The WAL is used even when journal.wal_enabled is off.",
		Action: runRecover,
	}
}

// RecoveryView is the printed result of recover.
type RecoveryView struct {
	Path           string `json:"path" yaml:"path"`
	Status         string `json:"status" yaml:"status"`
	Replayed       int    `json:"replayed" yaml:"replayed"`
	Skipped        int    `json:"skipped" yaml:"skipped"`
	DiscardedBytes int64  `json:"discarded_bytes" yaml:"discarded_bytes"`
	RepairedTail   bool   `json:"repaired_tail" yaml:"repaired_tail"`
	NextSequence   uint64 `json:"next_sequence" yaml:"next_sequence"`
}

func runRecover(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	cfg.Journal.WALEnabled = true
	j, err := openJournal(c, cfg)
	if err != nil {
		return exitError(err)
	}

	out := j.Recovery()
	view := &RecoveryView{
		Path:           j.Path(),
		Status:         out.Status.String(),
		Replayed:       out.Replayed,
		Skipped:        out.Skipped,
		DiscardedBytes: out.DiscardedBytes,
		RepairedTail:   out.RepairedTail,
		NextSequence:   j.NextSequence(),
	}
	if err := j.Close(); err != nil {
		return exitError(err)
	}
	return render(c, view)
}
