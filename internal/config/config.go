package config

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/klinecore/internal/errors"
	"github.com/vango-dev/klinecore/pkg/bridge"
	"github.com/vango-dev/klinecore/pkg/datafeed"
	"github.com/vango-dev/klinecore/pkg/features/resource"
	"github.com/vango-dev/klinecore/pkg/reactive"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "klinecore.yaml"

	// DefaultAddr is the default bridge listen address.
	DefaultAddr = ":8080"

	// DefaultDemoStart is the first bar of the demo series.
	DefaultDemoStart = "2024-01-01"
)

// Config is the complete klinecore configuration.
type Config struct {
	Runtime   RuntimeConfig   `yaml:"runtime" json:"runtime"`
	Resource  ResourceConfig  `yaml:"resource" json:"resource"`
	Bridge    BridgeConfig    `yaml:"bridge" json:"bridge"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Feed      FeedConfig      `yaml:"feed" json:"feed"`
	Demo      DemoConfig      `yaml:"demo" json:"demo"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RuntimeConfig configures the reactive runtime.
type RuntimeConfig struct {
	// MaxUpdatesPerFlush bounds the computations one flush may run.
	// Zero uses the runtime default; negative disables the check.
	MaxUpdatesPerFlush int `yaml:"max_updates_per_flush" json:"maxUpdatesPerFlush,omitempty"`

	// MaxFetchStarts rate-limits resource fetches per FetchWindow.
	// Zero disables the limit.
	MaxFetchStarts int `yaml:"max_fetch_starts" json:"maxFetchStarts,omitempty"`

	// FetchWindow is the storm budget window (e.g. "1s").
	FetchWindow Duration `yaml:"fetch_window" json:"fetchWindow,omitempty"`
}

// ResourceConfig configures the candle resource.
type ResourceConfig struct {
	// RefreshSchedule is a six-field cron spec, seconds first. Empty
	// disables scheduled refetches.
	RefreshSchedule string `yaml:"refresh_schedule" json:"refreshSchedule,omitempty"`

	// StaleTime is how long a fetched value is considered fresh.
	StaleTime Duration `yaml:"stale_time" json:"staleTime,omitempty"`

	// Retries is the number of retries after a failed fetch.
	Retries int `yaml:"retries" json:"retries,omitempty"`

	// RetryDelay is the pause between retries.
	RetryDelay Duration `yaml:"retry_delay" json:"retryDelay,omitempty"`
}

// BridgeConfig configures the renderer bridge.
type BridgeConfig struct {
	Addr           string   `yaml:"addr" json:"addr,omitempty"`
	ReadTimeout    Duration `yaml:"read_timeout" json:"readTimeout,omitempty"`
	WriteTimeout   Duration `yaml:"write_timeout" json:"writeTimeout,omitempty"`
	Heartbeat      Duration `yaml:"heartbeat" json:"heartbeat,omitempty"`
	SendBuffer     int      `yaml:"send_buffer" json:"sendBuffer,omitempty"`
	MaxMessageSize int64    `yaml:"max_message_size" json:"maxMessageSize,omitempty"`

	// AllowedOrigins lists the Origin values accepted on upgrade. "*"
	// accepts any origin. Empty accepts same-origin requests only.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowedOrigins,omitempty"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	Metrics    bool   `yaml:"metrics" json:"metrics"`
	Namespace  string `yaml:"namespace" json:"namespace,omitempty"`
	Tracing    bool   `yaml:"tracing" json:"tracing"`
	TracerName string `yaml:"tracer_name" json:"tracerName,omitempty"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level,omitempty"`
	Format string `yaml:"format" json:"format,omitempty"`
}

// Feed sources.
const (
	FeedWalk = "walk"
	FeedHTTP = "http"
	FeedS3   = "s3"
)

// FeedConfig selects where candles come from.
type FeedConfig struct {
	// Source is "walk" (default), "http" or "s3".
	Source string `yaml:"source" json:"source,omitempty"`

	// URL is the chart URL with one %s for the symbol when Source is http,
	// or s3://bucket/prefix/ when Source is s3.
	URL string `yaml:"url" json:"url,omitempty"`

	// Region and Endpoint configure the S3 client. Endpoint selects an
	// S3-compatible server.
	Region   string `yaml:"region" json:"region,omitempty"`
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`
}

// DemoConfig configures the random-walk datafeed.
type DemoConfig struct {
	Symbols    []string `yaml:"symbols" json:"symbols,omitempty"`
	Seed       uint64   `yaml:"seed" json:"seed,omitempty"`
	Start      string   `yaml:"start" json:"start,omitempty"`
	Interval   Duration `yaml:"interval" json:"interval,omitempty"`
	Bars       int      `yaml:"bars" json:"bars,omitempty"`
	Volatility float64  `yaml:"volatility" json:"volatility,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	walk := datafeed.DefaultWalkOptions()
	hub := bridge.DefaultConfig()
	return &Config{
		Runtime: RuntimeConfig{
			FetchWindow: Duration(time.Second),
		},
		Resource: ResourceConfig{
			RetryDelay: Duration(time.Second),
		},
		Bridge: BridgeConfig{
			Addr:           DefaultAddr,
			ReadTimeout:    Duration(hub.ReadTimeout),
			WriteTimeout:   Duration(hub.WriteTimeout),
			Heartbeat:      Duration(hub.HeartbeatInterval),
			SendBuffer:     hub.SendBuffer,
			MaxMessageSize: hub.MaxMessageSize,
		},
		Telemetry: TelemetryConfig{
			Metrics:    true,
			Namespace:  "klinecore",
			TracerName: "klinecore",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Feed: FeedConfig{
			Source: FeedWalk,
			Region: "us-east-1",
		},
		Demo: DemoConfig{
			Symbols:    []string{"AAPL"},
			Seed:       walk.Seed,
			Start:      DefaultDemoStart,
			Interval:   Duration(walk.Interval),
			Bars:       walk.Bars,
			Volatility: walk.Volatility,
		},
	}
}

// fileNames are the names Load looks for, in order.
var fileNames = []string{ConfigFileName, "klinecore.yml", "klinecore.json"}

// Exists reports whether dir holds a configuration file.
func Exists(dir string) bool {
	return find(dir) != ""
}

func find(dir string) string {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads configuration from the specified directory. It looks for
// klinecore.yaml, klinecore.yml and klinecore.json in that order.
func Load(dir string) (*Config, error) {
	if path := find(dir); path != "" {
		return LoadFile(path)
	}
	return nil, errors.New("E401").
		WithDetail("No klinecore.yaml or klinecore.json found in " + dir).
		WithSuggestion("Create klinecore.yaml or pass --config")
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension: .yaml and .yml are YAML, .json is JSON. Fields absent
// from the file keep their default.
func LoadFile(path string) (*Config, error) {
	var decode func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decode = yaml.Unmarshal
	case ".json":
		decode = json.Unmarshal
	default:
		return nil, errors.New("E403").WithDetail("Unsupported config file " + path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E401").WithDetail("Cannot read " + path).Wrap(err)
	}

	cfg := New()
	if err := decode(data, cfg); err != nil {
		return nil, errors.New("E401").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file syntax").
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to path, choosing the format by extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	default:
		return errors.New("E403").WithDetail("Unsupported config file " + path)
	}
	if err != nil {
		return errors.New("E401").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E401").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyEnvOverrides lets well-known environment variables override the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KLINECORE_ADDR"); v != "" {
		c.Bridge.Addr = v
	}
	if v := os.Getenv("KLINECORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KLINECORE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// applyDefaults fills in values a file set to empty.
func (c *Config) applyDefaults() {
	if c.Bridge.Addr == "" {
		c.Bridge.Addr = DefaultAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = "klinecore"
	}
	if c.Telemetry.TracerName == "" {
		c.Telemetry.TracerName = "klinecore"
	}
	if c.Feed.Source == "" {
		c.Feed.Source = FeedWalk
	}
	if c.Demo.Start == "" {
		c.Demo.Start = DefaultDemoStart
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("E402").WithDetailf(format, args...)
	}

	if c.Runtime.MaxFetchStarts < 0 {
		return invalid("runtime.max_fetch_starts must not be negative")
	}
	if c.Runtime.FetchWindow < 0 {
		return invalid("runtime.fetch_window must not be negative")
	}

	if c.Resource.RefreshSchedule != "" {
		if err := resource.ParseSchedule(c.Resource.RefreshSchedule); err != nil {
			return err
		}
	}
	if c.Resource.Retries < 0 {
		return invalid("resource.retries must not be negative")
	}
	if c.Resource.StaleTime < 0 || c.Resource.RetryDelay < 0 {
		return invalid("resource durations must not be negative")
	}

	b := c.Bridge
	if b.ReadTimeout < 0 || b.WriteTimeout < 0 || b.Heartbeat < 0 {
		return invalid("bridge durations must not be negative")
	}
	if b.Heartbeat > 0 && b.ReadTimeout > 0 && b.Heartbeat >= b.ReadTimeout {
		return invalid("bridge.heartbeat (%s) must be shorter than bridge.read_timeout (%s)", b.Heartbeat, b.ReadTimeout)
	}
	if b.SendBuffer == 1 || b.SendBuffer < 0 {
		return invalid("bridge.send_buffer must be at least 2")
	}
	if b.MaxMessageSize < 0 {
		return invalid("bridge.max_message_size must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return invalid("logging.format %q must be text or json", c.Logging.Format)
	}

	switch c.Feed.Source {
	case FeedWalk:
	case FeedHTTP:
		if strings.Count(c.Feed.URL, "%s") != 1 {
			return invalid("feed.url %q must contain exactly one %%s for the symbol", c.Feed.URL)
		}
	case FeedS3:
		if _, _, err := datafeed.ParseObjectURL(c.Feed.URL); err != nil {
			return invalid("feed.url: %v", err)
		}
	default:
		return invalid("feed.source %q must be walk, http or s3", c.Feed.Source)
	}

	if len(c.Demo.Symbols) == 0 {
		return invalid("demo.symbols must list at least one symbol")
	}
	if _, err := time.Parse(time.DateOnly, c.Demo.Start); err != nil {
		return invalid("demo.start %q is not a YYYY-MM-DD date", c.Demo.Start)
	}
	if c.Demo.Bars < 0 || c.Demo.Interval < 0 || c.Demo.Volatility < 0 {
		return invalid("demo.bars, demo.interval and demo.volatility must not be negative")
	}
	return nil
}

// Options returns the runtime options described by the configuration.
func (r RuntimeConfig) Options() []reactive.Option {
	var opts []reactive.Option
	if r.MaxUpdatesPerFlush != 0 {
		opts = append(opts, reactive.WithMaxUpdates(r.MaxUpdatesPerFlush))
	}
	if r.MaxFetchStarts > 0 {
		opts = append(opts, reactive.WithStormBudget(&reactive.StormBudgetConfig{
			MaxFetchStarts: r.MaxFetchStarts,
			Window:         time.Duration(r.FetchWindow),
		}))
	}
	return opts
}

// Options returns the resource options described by the configuration.
func (r ResourceConfig) Options() []resource.Option {
	var opts []resource.Option
	if r.StaleTime > 0 {
		opts = append(opts, resource.StaleTime(time.Duration(r.StaleTime)))
	}
	if r.Retries > 0 {
		opts = append(opts, resource.RetryOnError(r.Retries, time.Duration(r.RetryDelay)))
	}
	return opts
}

// HubConfig returns the bridge configuration.
func (b BridgeConfig) HubConfig() bridge.Config {
	cfg := bridge.Config{
		ReadTimeout:       time.Duration(b.ReadTimeout),
		WriteTimeout:      time.Duration(b.WriteTimeout),
		HeartbeatInterval: time.Duration(b.Heartbeat),
		SendBuffer:        b.SendBuffer,
		MaxMessageSize:    b.MaxMessageSize,
	}
	switch {
	case slices.Contains(b.AllowedOrigins, "*"):
		cfg.CheckOrigin = func(*http.Request) bool { return true }
	case len(b.AllowedOrigins) > 0:
		allowed := slices.Clone(b.AllowedOrigins)
		cfg.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowed, origin)
		}
	}
	return cfg
}

// WalkOptions returns the random-walk options. Validate must have accepted
// the configuration.
func (d DemoConfig) WalkOptions() datafeed.WalkOptions {
	start, _ := time.Parse(time.DateOnly, d.Start)
	return datafeed.WalkOptions{
		Seed:       d.Seed,
		Start:      start,
		Interval:   time.Duration(d.Interval),
		Bars:       d.Bars,
		Volatility: d.Volatility,
	}
}

// NewFeed opens the configured candle source. Validate must have accepted
// the configuration.
func (c *Config) NewFeed() datafeed.Feed {
	switch c.Feed.Source {
	case FeedHTTP:
		return &datafeed.HTTPFeed{URL: c.Feed.URL}
	case FeedS3:
		bucket, prefix, _ := datafeed.ParseObjectURL(c.Feed.URL)
		client := datafeed.NewS3Client(c.Feed.Region, c.Feed.Endpoint)
		return datafeed.NewObjectFeed(client, bucket, prefix)
	default:
		return datafeed.NewWalk(c.Demo.WalkOptions())
	}
}
