package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pusher/chatkit-go/cli/reader"
	"github.com/pusher/chatkit-go/snapshot"
)

// newReader opens --file when given, otherwise the configured archive.
func newReader(c *cli.Context) (reader.Reader, error) {
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot: %w", err)
		}
		doc, err := snapshot.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
		}
		return reader.NewDocumentReader(doc), nil
	}

	cfg, err := loadSettings(c)
	if err != nil {
		return nil, err
	}
	if cfg.Snapshot.Backend == "" {
		return nil, fmt.Errorf("no snapshot source: pass --file or --snapshot-backend with --snapshot-path")
	}
	archive, err := openArchive(c.Context, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot archive: %w", err)
	}
	return reader.NewArchiveReader(archive), nil
}

// snapshotVersion returns --snapshot-version, or reader.Latest when unset.
func snapshotVersion(c *cli.Context) uint64 {
	if c.IsSet("snapshot-version") {
		return c.Uint64("snapshot-version")
	}
	return reader.Latest
}
