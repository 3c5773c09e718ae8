package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/reasonjournal/internal/config"
)

// KeygenCommand prints or writes a new random journal key.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a journal key",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "size",
				Usage: "key length in bytes",
				Value: config.DefaultKeySize,
			},
			&cli.StringFlag{
				Name:  "write",
				Usage: "write the key to this file (mode 0600, must not exist)",
			},
		},
		Action: runKeygen,
	}
}

// KeyView is the printed result of keygen.
type KeyView struct {
	Key  string `json:"key,omitempty" yaml:"key,omitempty"`
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	Size int    `json:"size" yaml:"size"`
}

func runKeygen(c *cli.Context) error {
	size := c.Int("size")
	key, err := config.GenerateKey(size)
	if err != nil {
		return cli.Exit(err.Error(), ExitFailure)
	}

	path := c.String("write")
	if path == "" {
		if tableOutput(c) {
			_, err := fmt.Fprintln(c.App.Writer, key)
			return err
		}
		return render(c, &KeyView{Key: key, Size: size})
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return cli.Exit(fmt.Sprintf("write key: %v", err), ExitFailure)
	}
	if _, err := fmt.Fprintln(f, key); err != nil {
		f.Close()
		return cli.Exit(fmt.Sprintf("write key: %v", err), ExitFailure)
	}
	if err := f.Close(); err != nil {
		return cli.Exit(fmt.Sprintf("write key: %v", err), ExitFailure)
	}
	return render(c, &KeyView{File: path, Size: size})
}
