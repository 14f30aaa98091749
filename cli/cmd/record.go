package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/pusher/chatkit-go/cli/config"
	"github.com/pusher/chatkit-go/iox"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/repository"
	"github.com/pusher/chatkit-go/runtime"
	"github.com/pusher/chatkit-go/snapshot"
	"github.com/pusher/chatkit-go/transport/replay"
	"github.com/pusher/chatkit-go/transport/ws"
)

// RecordCommand returns the record command.
func RecordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Connect to a chat instance and record the user subscription",
		Description: `Connects over WebSocket, drives a client, and writes every subscription
callback to --out so the session can be replayed with "chatkit replay".

Stops on SIGINT/SIGTERM, after --duration, or when the subscription closes.`,
		Flags: append(SessionFlags(),
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Recording file to write",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "WebSocket base URL (ws:// or wss://)",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop recording after this long (0: until interrupted)",
			},
			&cli.BoolFlag{
				Name:  "resume",
				Usage: "Redial after unexpected disconnects",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "metrics-listen",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
		),
		Action: recordAction,
	}
}

func recordAction(c *cli.Context) error {
	cfg, err := loadSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if cfg.Endpoint == "" {
		return cli.Exit("record requires --endpoint or endpoint in config", exitConfigError)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer func() { _ = logger.Sync() }()

	transport, err := ws.New(wsConfig(cfg), logger)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	fetcher, err := newFetcher(cfg, nil)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	notify, err := newAdapter(cfg.Adapter)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	archive, err := openArchive(c.Context, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open snapshot archive: %v", err), exitConfigError)
	}

	f, err := os.Create(c.String("out"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create recording: %v", err), exitConfigError)
	}
	defer iox.DiscardClose(f)
	recorder := replay.NewRecorder(transport, f)

	collector := metrics.NewCollector(cfg.InstanceLocator, "", "ws")
	client, err := runtime.NewClient(runtime.Config{
		InstanceLocator: cfg.InstanceLocator,
		FetchTimeout:    cfg.Fetch.Timeout.Duration,
	}, runtime.Dependencies{
		Transport: recorder,
		Fetcher:   fetcher,
		Adapter:   notify,
		Logger:    logger,
		Collector: collector,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer func() { _ = client.Close() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, collector, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	repo, err := client.JoinedRooms()
	if err != nil {
		return cli.Exit(err.Error(), exitNotConnected)
	}
	closed := make(chan struct{})
	var closeOnce sync.Once
	cancelObserve := repo.Observe(func(s repository.State) {
		if !c.Bool("quiet") {
			printTransition(os.Stdout, s)
		}
		if s.Kind == repository.Closed {
			closeOnce.Do(func() { close(closed) })
		}
	})
	defer cancelObserve()

	start := time.Now()
	if err := client.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("connect failed", map[string]any{"error": err.Error()})
	}

	select {
	case <-ctx.Done():
	case <-closed:
	}

	final := repo.State()
	logger.Info("recording stopped", map[string]any{
		"state":   final.String(),
		"records": recorder.Count(),
	})
	if err := recorder.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: recording incomplete: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "recorded %d records to %s\n", recorder.Count(), c.String("out"))

	if archive != nil {
		meta := snapshot.Meta{InstanceLocator: cfg.InstanceLocator, ClientID: client.ID(), CapturedAt: time.Now().UTC()}
		path, err := archive.Put(context.Background(), client.Store().State(), meta)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to archive snapshot: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "snapshot: %s\n", path)
		}
	}
	if path := c.String("report"); path != "" {
		report := runtime.BuildSessionReport(client, final, collector.Snapshot(), time.Since(start))
		if err := runtime.WriteSessionReport(report, path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return exitForState(final)
}

func wsConfig(cfg *config.Config) ws.Config {
	wc := ws.DefaultConfig()
	wc.URL = cfg.Endpoint
	wc.Token = cfg.Token
	wc.Headers = cfg.Transport.Headers
	if d := cfg.Transport.HandshakeTimeout.Duration; d > 0 {
		wc.HandshakeTimeout = d
	}
	if cfg.Transport.ReadLimit > 0 {
		wc.ReadLimit = cfg.Transport.ReadLimit
	}
	if cfg.Transport.Resume != nil {
		wc.Resume = *cfg.Transport.Resume
	}
	wc.MaxRetries = cfg.Transport.MaxRetries
	return wc
}

// serveMetrics exposes the collector on addr until shut down.
func serveMetrics(addr string, collector *metrics.Collector, logger *log.Logger) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewExporter(collector),
		collectors.NewGoCollector(),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", map[string]any{"addr": addr, "error": err.Error()})
		}
	}()
	logger.Info("serving metrics", map[string]any{"addr": addr})
	return srv
}
