package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pusher/chatkit-go/cli/render"
)

// InspectCommand returns the inspect command with subcommands.
// TUI mode is supported for all inspect subcommands.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect an archived client state",
		Subcommands: []*cli.Command{
			{
				Name:   "rooms",
				Usage:  "Show joined rooms as the client would present them",
				Flags:  append(ReadOnlyFlags(), SnapshotFlags()...),
				Action: inspectRoomsAction,
			},
			{
				Name:   "users",
				Usage:  "Show known users and their resolution state",
				Flags:  append(ReadOnlyFlags(), SnapshotFlags()...),
				Action: inspectUsersAction,
			},
		},
	}
}

func inspectRoomsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	src, err := newReader(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	resp, err := src.InspectRooms(c.Context, snapshotVersion(c))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.Bool("tui") {
		return r.RenderTUI("inspect_rooms", resp)
	}
	return r.Render(resp)
}

func inspectUsersAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	src, err := newReader(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	resp, err := src.InspectUsers(c.Context, snapshotVersion(c))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.Bool("tui") {
		return r.RenderTUI("inspect_users", resp)
	}
	return r.Render(resp)
}
