package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/reasonjournal/internal/cli/output"
	"github.com/yndnr/reasonjournal/internal/config"
	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/infra/buildinfo"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
)

// Exit codes.
const (
	ExitFailure    = 1
	ExitCorruption = 3
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "rjournal",
		Usage:   "tamper-evident reason journal tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			AppendCommand(),
			VerifyCommand(),
			DumpCommand(),
			RecoverCommand(),
			BenchCommand(),
			RemoteCommand(),
			KeygenCommand(),
			VersionCommand(),
		},
		HideVersion:          true,
		EnableBashCompletion: true,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"RJOURNAL_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "journal",
			Aliases: []string{"j"},
			Usage:   "journal file (overrides journal.path)",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "hex journal key, optionally rjk_-prefixed (overrides journal.key)",
		},
		&cli.StringFlag{
			Name:  "key-file",
			Usage: "file holding the journal key (overrides journal.key_file)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "log journal activity to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	Journal    string
	Key        string
	KeyFile    string

	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		Journal:    c.String("journal"),
		Key:        c.String("key"),
		KeyFile:    c.String("key-file"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
		Verbose:    c.Bool("verbose"),
	}
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	flags := ParseGlobalFlags(c)
	overrides := map[string]any{}
	if flags.Journal != "" {
		overrides["journal.path"] = flags.Journal
	}
	switch {
	case flags.Key != "":
		overrides["journal.key"], overrides["journal.key_file"] = flags.Key, ""
	case flags.KeyFile != "":
		overrides["journal.key"], overrides["journal.key_file"] = "", flags.KeyFile
	}
	cfg, _, err := config.LoadWithOverrides(flags.ConfigFile, overrides)
	return cfg, err
}

// commandLogger logs to stderr with --verbose and discards otherwise.
func commandLogger(c *cli.Context, cfg *config.Config) logger.Logger {
	if !c.Bool("verbose") {
		return logger.Discard()
	}
	l, err := logger.New(logger.Config{
		Level:  "debug",
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return logger.Discard()
	}
	return l
}

// openJournal opens the configured journal for writing.
func openJournal(c *cli.Context, cfg *config.Config, extra ...storage.Option) (*storage.Journal, error) {
	key, err := config.LoadKey(&cfg.Journal)
	if err != nil {
		return nil, err
	}
	defer key.Close()
	opts, err := cfg.Journal.StorageOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, storage.WithLogger(commandLogger(c, cfg).Slog()))
	opts = append(opts, extra...)
	return storage.OpenWithWAL(cfg.Journal.Path, key.Bytes(), cfg.Journal.WALEnabled, opts...)
}

// render writes data in the format chosen by --output.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return cli.Exit(err.Error(), ExitFailure)
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}

// tableOutput reports whether results are for a human reader.
func tableOutput(c *cli.Context) bool {
	format, err := output.ParseFormat(c.String("output"))
	return err == nil && format == output.FormatTable
}

// exitError maps journal errors to process exit codes. Corruption gets its
// own code so scripts can tell a broken chain from a bad invocation.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var corrupt *domain.CorruptionError
	if errors.As(err, &corrupt) {
		return cli.Exit(err.Error(), ExitCorruption)
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		return err
	}
	return cli.Exit(err.Error(), ExitFailure)
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}
