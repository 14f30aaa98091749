// Package cmd provides CLI commands for the chatkit binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for inspect and stats.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}

	// ConfigFlag points at a chatkit.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to chatkit.yaml (flags override file values)",
		EnvVars: []string{"CHATKIT_CONFIG"},
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// --tui is included everywhere so unsupported commands can reject it with
// a clear message instead of "flag not defined".
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// SnapshotFlags select the archive read-only commands read from.
func SnapshotFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{
			Name:  "file",
			Usage: "Read a single snapshot file instead of an archive",
		},
		&cli.Uint64Flag{
			Name:  "snapshot-version",
			Usage: "Snapshot version to read (default: latest)",
		},
		&cli.StringFlag{
			Name:  "instance-locator",
			Usage: "Chat instance locator (selects the archive partition)",
		},
		&cli.StringFlag{
			Name:  "snapshot-backend",
			Usage: "Snapshot archive backend: fs or s3",
		},
		&cli.StringFlag{
			Name:  "snapshot-path",
			Usage: "Snapshot archive path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "snapshot-region",
			Usage: "AWS region for the s3 backend (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "snapshot-endpoint",
			Usage: "Custom S3 endpoint URL (R2, MinIO)",
		},
		&cli.BoolFlag{
			Name:  "snapshot-s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}

// SessionFlags configure commands that run a client: replay and record.
func SessionFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{Name: "instance-locator", Usage: "Chat instance locator"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
		&cli.StringFlag{Name: "token", Usage: "Bearer token", EnvVars: []string{"CHATKIT_TOKEN"}},
		&cli.StringFlag{Name: "fetch-url", Usage: "Base URL of the user service (unset: placeholder users on replay, no fetching on record)"},
		&cli.StringFlag{Name: "adapter-type", Usage: "Notification adapter: webhook or redis"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Adapter URL (webhook endpoint or redis://)"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
		&cli.StringFlag{Name: "snapshot-backend", Usage: "Archive the final state: fs or s3"},
		&cli.StringFlag{Name: "snapshot-path", Usage: "Snapshot archive path (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "snapshot-region", Usage: "AWS region for the s3 backend"},
		&cli.StringFlag{Name: "snapshot-endpoint", Usage: "Custom S3 endpoint URL"},
		&cli.BoolFlag{Name: "snapshot-s3-path-style", Usage: "Force path-style S3 addressing"},
		&cli.StringFlag{Name: "report", Usage: "Write a JSON session report to this path (- for stderr)"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only print the final rooms"},
	}
}
