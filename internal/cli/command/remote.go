package command

import (
	"errors"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/reasonjournal/internal/cli/connection"
	"github.com/yndnr/reasonjournal/internal/infra/tlsroots"
)

// RemoteCommand groups commands that talk to a running rjournald.
func RemoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "remote",
		Usage: "Talk to a running rjournald",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "rjournald address (host:port or URL)",
				EnvVars: []string{"RJOURNAL_SERVER"},
				Value:   "127.0.0.1:5480",
			},
			&cli.BoolFlag{
				Name:  "tls",
				Usage: "use HTTPS",
			},
			&cli.StringFlag{
				Name:  "ca-file",
				Usage: "PEM CA bundle to trust in addition to system roots (implies --tls)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout",
				Value: connection.DefaultTimeout,
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:      "append",
				Usage:     "Append a record through the daemon",
				ArgsUsage: "[payload]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "reason", Aliases: []string{"r"}, Usage: "reason tag", Required: true},
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "read the payload from a file, - for stdin"},
				},
				Action: remoteAppend,
			},
			{
				Name:   "stats",
				Usage:  "Show the daemon's session metrics",
				Action: remoteStats,
			},
			{
				Name:   "verify",
				Usage:  "Ask the daemon to verify its journal",
				Action: remoteVerify,
			},
			{
				Name:   "ready",
				Usage:  "Check that the daemon has an open journal",
				Action: remoteReady,
			},
		},
	}
}

// remoteClient builds a client from the remote group's flags.
func remoteClient(c *cli.Context) (*connection.HTTPClient, error) {
	opts := []connection.Option{connection.WithTimeout(c.Duration("timeout"))}
	if caFile := c.String("ca-file"); caFile != "" || c.Bool("tls") {
		tlsCfg, err := tlsroots.ClientConfigFor(caFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, connection.WithTLSConfig(tlsCfg))
	}
	return connection.NewHTTPClient(c.String("server"), opts...), nil
}

func remoteAppend(c *cli.Context) error {
	payload, err := readPayload(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitFailure)
	}
	client, err := remoteClient(c)
	if err != nil {
		return exitError(err)
	}
	resp, err := client.Append(c.Context, c.String("reason"), payload)
	if err != nil {
		return remoteError(err)
	}
	return render(c, resp)
}

func remoteStats(c *cli.Context) error {
	client, err := remoteClient(c)
	if err != nil {
		return exitError(err)
	}
	stats, err := client.Stats(c.Context)
	if err != nil {
		return remoteError(err)
	}
	return render(c, stats)
}

func remoteVerify(c *cli.Context) error {
	client, err := remoteClient(c)
	if err != nil {
		return exitError(err)
	}
	report, err := client.Verify(c.Context)
	if err != nil {
		return remoteError(err)
	}
	return render(c, report)
}

func remoteReady(c *cli.Context) error {
	client, err := remoteClient(c)
	if err != nil {
		return exitError(err)
	}
	if err := client.Ready(c.Context); err != nil {
		return remoteError(err)
	}
	return render(c, map[string]string{"server": client.BaseURL(), "status": "ready"})
}

// remoteError gives a daemon-side broken chain the corruption exit code.
func remoteError(err error) error {
	var apiErr *connection.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		msg := apiErr.Error()
		if len(apiErr.Details) > 0 {
			msg += " " + string(apiErr.Details)
		}
		return cli.Exit(msg, ExitCorruption)
	}
	return exitError(err)
}
