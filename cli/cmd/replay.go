package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pusher/chatkit-go/cli/config"
	"github.com/pusher/chatkit-go/cli/reader"
	"github.com/pusher/chatkit-go/cli/render"
	"github.com/pusher/chatkit-go/fetch"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/repository"
	"github.com/pusher/chatkit-go/runtime"
	"github.com/pusher/chatkit-go/snapshot"
	"github.com/pusher/chatkit-go/transport/replay"
	"github.com/pusher/chatkit-go/wire"
)

// Exit codes for replay and record.
const (
	exitNotConnected = 1
	exitConfigError  = 2
)

// ReplayCommand returns the replay command.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Drive a client from a recorded subscription and print the joined rooms",
		ArgsUsage: "<recording>",
		Description: `Replays a recording through the full client pipeline.

Recordings are either framed msgpack written by "chatkit record" or, for
files ending in .jsonl, one event body per line.

Exit codes:
  0  final state is connected
  1  final state is degraded, closed, or never initialized
  2  configuration or input error`,
		Flags: append(SessionFlags(),
			FormatFlag,
			NoColorFlag,
			&cli.DurationFlag{
				Name:  "pace",
				Usage: "Delay between replayed records",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Abort the replay after this long",
				Value: time.Minute,
			},
		),
		Action: replayAction,
	}
}

// replayOptions are the per-invocation knobs of runReplay.
type replayOptions struct {
	Pace    time.Duration
	Timeout time.Duration
	Quiet   bool
	// Fetcher overrides the configured user service.
	Fetcher fetch.Fetcher
	Archive *snapshot.Archive
}

// replayResult is what runReplay observed.
type replayResult struct {
	State    repository.State
	Document *snapshot.Document
	Report   *runtime.SessionReport
	// Archived is the snapshot path, if one was written.
	Archived string
}

func replayAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("replay requires exactly one recording", exitConfigError)
	}
	cfg, err := loadSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer func() { _ = logger.Sync() }()

	records, err := readRecording(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	archive, err := openArchive(c.Context, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open snapshot archive: %v", err), exitConfigError)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	res, err := runReplay(c.Context, cfg, records, replayOptions{
		Pace:    c.Duration("pace"),
		Timeout: c.Duration("timeout"),
		Quiet:   c.Bool("quiet"),
		Archive: archive,
	}, os.Stdout, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	rooms, err := reader.RoomsFromDocument(res.Document)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read final state: %v", err), exitNotConnected)
	}
	if err := r.Render(rooms); err != nil {
		return err
	}
	if res.Archived != "" {
		fmt.Fprintf(os.Stderr, "snapshot: %s\n", res.Archived)
	}
	if path := c.String("report"); path != "" {
		if err := runtime.WriteSessionReport(res.Report, path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return exitForState(res.State)
}

// runReplay plays records through a fresh client until the recording is
// exhausted and the pipeline is idle. Transitions are written to out.
func runReplay(ctx context.Context, cfg *config.Config, records []wire.Record, opts replayOptions, out io.Writer, logger *log.Logger) (*replayResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	transport := replay.New(records, replay.WithPace(opts.Pace), replay.WithLogger(logger))
	fetcher := opts.Fetcher
	if fetcher == nil {
		var err error
		fetcher, err = newFetcher(cfg, fetch.Placeholder{})
		if err != nil {
			return nil, err
		}
	}
	notify, err := newAdapter(cfg.Adapter)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(cfg.InstanceLocator, "", "replay")
	client, err := runtime.NewClient(runtime.Config{
		InstanceLocator: cfg.InstanceLocator,
		FetchTimeout:    cfg.Fetch.Timeout.Duration,
	}, runtime.Dependencies{
		Transport: transport,
		Fetcher:   fetcher,
		Adapter:   notify,
		Logger:    logger,
		Collector: collector,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	repo, err := client.JoinedRooms()
	if err != nil {
		return nil, err
	}
	if !opts.Quiet {
		var mu sync.Mutex
		cancelObserve := repo.Observe(func(s repository.State) {
			mu.Lock()
			defer mu.Unlock()
			printTransition(out, s)
		})
		defer cancelObserve()
	}

	start := time.Now()
	connectCtx, cancelConnect := context.WithCancel(ctx)
	go func() {
		select {
		case <-transport.Finished():
		case <-connectCtx.Done():
		}
		cancelConnect()
	}()
	if err := client.Connect(connectCtx); err != nil {
		logger.Warn("connect did not complete", map[string]any{"error": err.Error()})
	}
	cancelConnect()

	select {
	case <-transport.Finished():
	case <-ctx.Done():
		return nil, fmt.Errorf("replay did not finish: %w", ctx.Err())
	}
	if err := client.WaitIdle(ctx); err != nil {
		return nil, fmt.Errorf("pipeline did not settle: %w", err)
	}

	final := repo.State()
	meta := snapshot.Meta{
		InstanceLocator: cfg.InstanceLocator,
		ClientID:        client.ID(),
		CapturedAt:      time.Now().UTC(),
	}
	vs := client.Store().State()
	res := &replayResult{
		State:    final,
		Document: snapshot.FromState(vs, meta),
		Report:   runtime.BuildSessionReport(client, final, collector.Snapshot(), time.Since(start)),
	}
	if opts.Archive != nil {
		path, err := opts.Archive.Put(ctx, vs, meta)
		if err != nil {
			return nil, fmt.Errorf("failed to archive snapshot: %w", err)
		}
		res.Archived = path
	}
	return res, nil
}

func printTransition(w io.Writer, s repository.State) {
	if s.ChangeReason != nil {
		fmt.Fprintf(w, "%s %s %s\n", s, s.ChangeReason.Kind, s.ChangeReason.Room.Identifier)
		return
	}
	fmt.Fprintln(w, s)
}

// readRecording loads a framed recording, or JSON lines for .jsonl files.
func readRecording(path string) ([]wire.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []wire.Record
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		records, err = wire.ReadJSONLines(f)
	} else {
		records, err = wire.ReadAll(f)
	}
	if err != nil {
		var fe *wire.FrameError
		if errors.As(err, &fe) && !fe.IsFatal() {
			return records, nil
		}
		return nil, fmt.Errorf("failed to read recording %s: %w", path, err)
	}
	return records, nil
}

func exitForState(s repository.State) error {
	if s.Kind == repository.Connected {
		return nil
	}
	msg := "final state: " + s.String()
	if s.Err != nil {
		msg += ": " + s.Err.Error()
	}
	return cli.Exit(msg, exitNotConnected)
}
