package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pusher/chatkit-go/cli/reader"
	"github.com/pusher/chatkit-go/cli/render"
)

// StatsCommand returns the stats command with subcommands.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregate statistics",
		Subcommands: []*cli.Command{
			{
				Name:   "snapshot",
				Usage:  "Summarize an archived state",
				Flags:  append(ReadOnlyFlags(), SnapshotFlags()...),
				Action: statsSnapshotAction,
			},
			{
				Name:      "session",
				Usage:     "Summarize a session report written by --report",
				ArgsUsage: "<report.json>",
				Flags:     ReadOnlyFlags(),
				Action:    statsSessionAction,
			},
		},
	}
}

func statsSnapshotAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	src, err := newReader(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	stats, err := src.Stats(c.Context, snapshotVersion(c))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.Bool("tui") {
		return r.RenderTUI("stats_snapshot", stats)
	}
	return r.Render(stats)
}

func statsSessionAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("stats session requires a report path", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	stats, err := reader.ReadSessionReport(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.Bool("tui") {
		return r.RenderTUI("stats_session", stats)
	}
	return r.Render(stats)
}
