package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pusher/chatkit-go/adapter"
	redisadapter "github.com/pusher/chatkit-go/adapter/redis"
	"github.com/pusher/chatkit-go/adapter/webhook"
	"github.com/pusher/chatkit-go/cli/config"
	"github.com/pusher/chatkit-go/fetch"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/snapshot"
)

// loadSettings reads --config, if given, and applies flags on top.
func loadSettings(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	strs := map[string]*string{
		"instance-locator":  &cfg.InstanceLocator,
		"endpoint":          &cfg.Endpoint,
		"token":             &cfg.Token,
		"log-level":         &cfg.LogLevel,
		"fetch-url":         &cfg.Fetch.URL,
		"adapter-type":      &cfg.Adapter.Type,
		"adapter-url":       &cfg.Adapter.URL,
		"adapter-channel":   &cfg.Adapter.Channel,
		"snapshot-backend":  &cfg.Snapshot.Backend,
		"snapshot-path":     &cfg.Snapshot.Path,
		"snapshot-region":   &cfg.Snapshot.Region,
		"snapshot-endpoint": &cfg.Snapshot.Endpoint,
		"metrics-listen":    &cfg.Metrics.Listen,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.IsSet("snapshot-s3-path-style") {
		cfg.Snapshot.S3PathStyle = c.Bool("snapshot-s3-path-style")
	}
	if c.IsSet("resume") {
		resume := c.Bool("resume")
		cfg.Transport.Resume = &resume
	}
}

// newLogger builds the session logger on stderr.
func newLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return log.NewLoggerWithWriter(log.Context{InstanceLocator: cfg.InstanceLocator}, os.Stderr, level), nil
}

// openArchive returns nil when no snapshot backend is configured.
func openArchive(ctx context.Context, cfg *config.Config) (*snapshot.Archive, error) {
	s := cfg.Snapshot
	if s.Backend == "" {
		return nil, nil
	}
	if s.Path == "" {
		return nil, fmt.Errorf("snapshot path is required for backend %s", s.Backend)
	}
	instance := cfg.InstanceLocator
	if instance == "" {
		instance = "default"
	}

	switch s.Backend {
	case "fs":
		return snapshot.NewFSArchive(s.Path, instance)
	case "s3":
		bucket, prefix := snapshot.ParseS3Path(s.Path)
		return snapshot.NewS3Archive(ctx, snapshot.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       s.Region,
			Endpoint:     s.Endpoint,
			UsePathStyle: s.S3PathStyle,
		}, instance)
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %s", s.Backend)
	}
}

// newAdapter returns nil when no adapter is configured.
func newAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Secret:  cfg.Secret,
			Timeout: cfg.Timeout.Duration,
			Retries: retriesOr(cfg.Retries, webhook.DefaultRetries),
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		a, err := redisadapter.New(redisadapter.Config{
			URL:      cfg.URL,
			Channel:  cfg.Channel,
			StateKey: cfg.StateKey,
			StateTTL: cfg.StateTTL.Duration,
			Timeout:  cfg.Timeout.Duration,
			Retries:  retriesOr(cfg.Retries, redisadapter.DefaultRetries),
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", cfg.Type)
	}
}

// newFetcher returns fallback when no user service URL is configured.
func newFetcher(cfg *config.Config, fallback fetch.Fetcher) (fetch.Fetcher, error) {
	if cfg.Fetch.URL == "" {
		return fallback, nil
	}
	f, err := fetch.New(fetch.Config{
		BaseURL: cfg.Fetch.URL,
		Token:   cfg.Token,
		Headers: cfg.Fetch.Headers,
		Timeout: cfg.Fetch.Timeout.Duration,
		Retries: retriesOr(cfg.Fetch.Retries, fetch.DefaultRetries),
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func retriesOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
