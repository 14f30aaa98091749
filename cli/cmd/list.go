package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pusher/chatkit-go/cli/render"
)

// ListCommand returns the list command with subcommands.
// TUI is not supported for list commands.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List archived entities",
		Subcommands: []*cli.Command{
			{
				Name:   "snapshots",
				Usage:  "List snapshot versions in the archive",
				Flags:  append(ReadOnlyFlags(), SnapshotFlags()...),
				Action: listSnapshotsAction,
			},
		},
	}
}

func listSnapshotsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list commands", 1)
	}
	src, err := newReader(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	items, err := src.ListSnapshots(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(items)
}
