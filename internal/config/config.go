package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/nativebridge/internal/errors"
)

const (
	// ConfigBaseName is the file name of the configuration, without extension.
	ConfigBaseName = "nativebridge"

	// DefaultSyncMode is the default flush synchronization mode.
	DefaultSyncMode = "snapshot_once"

	// DefaultResyncInterval is the number of flushes between forced snapshots.
	DefaultResyncInterval = 300

	// DefaultMaxCommands is the default command header capacity.
	DefaultMaxCommands = 256

	// DefaultMaxPayloadBytes is the default command payload capacity.
	DefaultMaxPayloadBytes = 16384

	// DefaultQueueSize is the default dispatch queue bound.
	DefaultQueueSize = 1024

	// DefaultFrameInterval is the default frame loop interval.
	DefaultFrameInterval = "16ms"

	// DefaultInspectorAddr is the default inspector listen address.
	DefaultInspectorAddr = "127.0.0.1:7420"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "nativebridge"
)

// Extensions lists the supported configuration file extensions in
// lookup order.
var Extensions = []string{".json", ".toml", ".yaml", ".yml"}

// Config is the complete nativebridge configuration.
type Config struct {
	Sync      SyncConfig      `json:"sync" toml:"sync" yaml:"sync"`
	Encoder   EncoderConfig   `json:"encoder" toml:"encoder" yaml:"encoder"`
	Dispatch  DispatchConfig  `json:"dispatch" toml:"dispatch" yaml:"dispatch"`
	Loop      LoopConfig      `json:"loop" toml:"loop" yaml:"loop"`
	Native    NativeConfig    `json:"native" toml:"native" yaml:"native"`
	Log       LogConfig       `json:"log" toml:"log" yaml:"log"`
	Recording RecordingConfig `json:"recording" toml:"recording" yaml:"recording"`
	Inspector InspectorConfig `json:"inspector" toml:"inspector" yaml:"inspector"`
	Telemetry TelemetryConfig `json:"telemetry" toml:"telemetry" yaml:"telemetry"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SyncConfig controls how the host tree is mirrored to the renderer.
type SyncConfig struct {
	// Mode is one of snapshot_once, snapshot_every_flush, mutations_only.
	Mode string `json:"mode,omitempty" toml:"mode,omitempty" yaml:"mode,omitempty"`

	// ResyncInterval forces a full snapshot every N flushes in
	// snapshot_once mode. Zero disables the periodic resync.
	ResyncInterval int `json:"resyncInterval,omitempty" toml:"resyncInterval,omitempty" yaml:"resyncInterval,omitempty"`
}

// EncoderConfig sizes the draw command buffers.
type EncoderConfig struct {
	MaxCommands     int `json:"maxCommands,omitempty" toml:"maxCommands,omitempty" yaml:"maxCommands,omitempty"`
	MaxPayloadBytes int `json:"maxPayloadBytes,omitempty" toml:"maxPayloadBytes,omitempty" yaml:"maxPayloadBytes,omitempty"`
}

// DispatchConfig bounds the event dispatch queue.
type DispatchConfig struct {
	QueueSize int `json:"queueSize,omitempty" toml:"queueSize,omitempty" yaml:"queueSize,omitempty"`
}

// LoopConfig controls the frame loop.
type LoopConfig struct {
	// FrameInterval is a Go duration string (e.g., "16ms").
	FrameInterval string `json:"frameInterval,omitempty" toml:"frameInterval,omitempty" yaml:"frameInterval,omitempty"`
}

// NativeConfig locates the native renderer library.
type NativeConfig struct {
	// Library is the path to the shared library. Empty selects the
	// headless stub renderer.
	Library string `json:"library,omitempty" toml:"library,omitempty" yaml:"library,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" toml:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" toml:"format,omitempty" yaml:"format,omitempty"`
}

// RecordingConfig configures sync traffic recording.
type RecordingConfig struct {
	// Path is a JSONL file receiving recorded entries.
	Path string `json:"path,omitempty" toml:"path,omitempty" yaml:"path,omitempty"`

	// SQLite is a database file receiving recorded entries.
	SQLite string `json:"sqlite,omitempty" toml:"sqlite,omitempty" yaml:"sqlite,omitempty"`

	// S3Bucket is the bucket recordings are uploaded to.
	S3Bucket string `json:"s3Bucket,omitempty" toml:"s3Bucket,omitempty" yaml:"s3Bucket,omitempty"`

	// S3Prefix is prepended to uploaded object keys.
	S3Prefix string `json:"s3Prefix,omitempty" toml:"s3Prefix,omitempty" yaml:"s3Prefix,omitempty"`
}

// InspectorConfig configures the HTTP inspector.
type InspectorConfig struct {
	Addr string `json:"addr,omitempty" toml:"addr,omitempty" yaml:"addr,omitempty"`
}

// TelemetryConfig configures metrics.
type TelemetryConfig struct {
	Namespace string `json:"namespace,omitempty" toml:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Sync: SyncConfig{
			Mode:           DefaultSyncMode,
			ResyncInterval: DefaultResyncInterval,
		},
		Encoder: EncoderConfig{
			MaxCommands:     DefaultMaxCommands,
			MaxPayloadBytes: DefaultMaxPayloadBytes,
		},
		Dispatch: DispatchConfig{QueueSize: DefaultQueueSize},
		Loop:     LoopConfig{FrameInterval: DefaultFrameInterval},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspector: InspectorConfig{Addr: DefaultInspectorAddr},
		Telemetry: TelemetryConfig{Namespace: DefaultNamespace},
	}
}

// Load reads configuration from the specified directory.
// It looks for nativebridge.json, .toml, .yaml or .yml, in that order.
func Load(dir string) (*Config, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, ConfigBaseName+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("B051").
		WithDetail("No " + ConfigBaseName + ".{json,toml,yaml} found in " + dir).
		WithSuggestion("Run 'nativebridge config init' or create the file manually")
}

// LoadFile reads configuration from the specified file path. The format
// is selected by the file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("B051").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("B052").Wrap(err)
	}

	cfg := New()
	if err := unmarshal(path, data, cfg); err != nil {
		return nil, errors.New("B050").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file syntax matches its extension")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func marshal(path string, cfg *Config) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Marshal(cfg)
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, in the format
// implied by its extension.
func (c *Config) SaveTo(path string) error {
	data, err := marshal(path, c)
	if err != nil {
		return errors.New("B050").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("B052").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Sync.Mode == "" {
		c.Sync.Mode = DefaultSyncMode
	}
	if c.Encoder.MaxCommands == 0 {
		c.Encoder.MaxCommands = DefaultMaxCommands
	}
	if c.Encoder.MaxPayloadBytes == 0 {
		c.Encoder.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if c.Dispatch.QueueSize == 0 {
		c.Dispatch.QueueSize = DefaultQueueSize
	}
	if c.Loop.FrameInterval == "" {
		c.Loop.FrameInterval = DefaultFrameInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultInspectorAddr
	}
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Sync.Mode {
	case "snapshot_once", "snapshot_every_flush", "mutations_only":
	default:
		return errors.New("B050").
			WithDetail("sync.mode must be snapshot_once, snapshot_every_flush or mutations_only, got " + c.Sync.Mode)
	}
	if c.Sync.ResyncInterval < 0 {
		return errors.New("B050").WithDetail("sync.resyncInterval must not be negative")
	}
	if c.Encoder.MaxCommands < 1 || c.Encoder.MaxPayloadBytes < 1 {
		return errors.New("B050").WithDetail("encoder capacities must be positive")
	}
	if c.Dispatch.QueueSize < 1 {
		return errors.New("B050").WithDetail("dispatch.queueSize must be positive")
	}
	if d, err := time.ParseDuration(c.Loop.FrameInterval); err != nil || d <= 0 {
		return errors.New("B050").
			WithDetail("loop.frameInterval must be a positive duration, got " + c.Loop.FrameInterval)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("B050").WithDetail("log.level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("B050").WithDetail("log.format must be text or json")
	}
	return nil
}

// FrameInterval returns the parsed frame loop interval.
func (c *Config) FrameInterval() time.Duration {
	d, err := time.ParseDuration(c.Loop.FrameInterval)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultFrameInterval)
	}
	return d
}

// LibraryPath returns the absolute path to the native library, resolved
// against the config directory.
func (c *Config) LibraryPath() string {
	path := c.Native.Library
	if path == "" || filepath.IsAbs(path) || c.Dir() == "" {
		return path
	}
	return filepath.Join(c.Dir(), path)
}
