package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/cli/render"
	"github.com/pusher/chatkit-go/wire"
)

// DebugCommand returns the debug command with subcommands.
// TUI is not supported for debug commands.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Debugging utilities",
		Subcommands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "Decode every record of a recording into its action",
				ArgsUsage: "<recording>",
				Flags:     ReadOnlyFlags(),
				Action:    debugDecodeAction,
			},
		},
	}
}

// DecodedRecord is one row of debug decode output.
type DecodedRecord struct {
	Index      int       `json:"index"`
	Kind       string    `json:"kind"`
	EventID    string    `json:"event_id,omitempty"`
	Action     string    `json:"action,omitempty"`
	Signature  string    `json:"signature,omitempty"`
	Status     int       `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

func debugDecodeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("debug decode requires a recording path", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}
	records, err := readRecording(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(decodeRecords(records))
}

// decodeRecords maps records to rows. Undecodable events keep their error.
func decodeRecords(records []wire.Record) []DecodedRecord {
	rows := make([]DecodedRecord, 0, len(records))
	for i, rec := range records {
		row := DecodedRecord{
			Index:      i,
			Kind:       string(rec.Kind),
			EventID:    rec.EventID,
			Status:     rec.StatusCode,
			Error:      rec.Error,
			ReceivedAt: rec.ReceivedAt,
		}
		if rec.Kind == wire.RecordEvent {
			a, err := wire.Decode(rec.Body)
			if err != nil {
				row.Error = err.Error()
			} else {
				row.Action = action.Name(a)
				row.Signature = a.Signature().String()
			}
		}
		rows = append(rows, row)
	}
	return rows
}
