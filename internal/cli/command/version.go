package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/reasonjournal/internal/infra/buildinfo"
)

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			if tableOutput(c) {
				_, err := fmt.Fprintf(c.App.Writer, "rjournal %s\n", buildinfo.String())
				return err
			}
			return render(c, buildinfo.Get())
		},
	}
}
