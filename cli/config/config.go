package config

import (
	"fmt"
	"time"
)

// Config represents a chatkit.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	InstanceLocator string          `yaml:"instance_locator"`
	Endpoint        string          `yaml:"endpoint"`
	Token           string          `yaml:"token"`
	LogLevel        string          `yaml:"log_level"`
	Transport       TransportConfig `yaml:"transport"`
	Fetch           FetchConfig     `yaml:"fetch"`
	Snapshot        SnapshotConfig  `yaml:"snapshot"`
	Adapter         AdapterConfig   `yaml:"adapter"`
	Metrics         MetricsConfig   `yaml:"metrics"`
}

// TransportConfig holds websocket transport defaults.
type TransportConfig struct {
	Headers          map[string]string `yaml:"headers,omitempty"`
	HandshakeTimeout Duration          `yaml:"handshake_timeout,omitempty"`
	ReadLimit        int64             `yaml:"read_limit,omitempty"`
	// Resume is a pointer so that "resume: false" is distinct from omitted.
	Resume     *bool `yaml:"resume,omitempty"`
	MaxRetries int   `yaml:"max_retries,omitempty"`
}

// FetchConfig holds user fetcher defaults.
type FetchConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// SnapshotConfig holds snapshot archive defaults.
type SnapshotConfig struct {
	// Backend is "fs" or "s3".
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds notification adapter defaults.
type AdapterConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	StateKey string            `yaml:"state_key,omitempty"`
	StateTTL Duration          `yaml:"state_ttl,omitempty"`
	Secret   string            `yaml:"secret,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
}

// MetricsConfig holds the Prometheus listener for long-running commands.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks values whose set is closed.
func (c *Config) Validate() error {
	switch c.Snapshot.Backend {
	case "", "fs", "s3":
	default:
		return fmt.Errorf("snapshot.backend must be fs or s3, got %q", c.Snapshot.Backend)
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type)
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter.url is required for adapter type %s", c.Adapter.Type)
	}
	return nil
}
