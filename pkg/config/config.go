// Package config loads the dispatch node's configuration from environment
// variables, a YAML file, and defaults, in that order of precedence.
// Command-line flags are not read; the caller passes only the config file
// path.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/dispatchmesh/dispatch/internal/bytesize"
)

// Config is the dispatch node's static configuration.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (DISPATCH_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Node configures this node's own transport identity and peer set.
	Node NodeConfig `mapstructure:"node" yaml:"node"`

	// Reconnect configures the backoff policy for re-establishing a lost
	// peer connection.
	Reconnect ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Telemetry contains OpenTelemetry tracing configuration.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// NodeConfig configures the local transport endpoint and its seed peers.
type NodeConfig struct {
	// ListenAddr is the local "host:port" to bind.
	ListenAddr string `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`

	// Peers lists the "host:port" addresses of seed peers. They are not
	// dialed at startup; a connection to a peer is made on the first send
	// to it. Peers discovered via an inbound connection need not be listed
	// here.
	Peers []string `mapstructure:"peers" yaml:"peers"`

	// DispatchTimeout is loaded, defaulted and validated, but no component
	// applies it: node.Dispatcher bounds a remote Dispatch call only by the
	// deadline of the context the caller passes.
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout" validate:"required,gt=0" yaml:"dispatch_timeout"`

	// ReceiveQueueSize bounds the local inbound message queue.
	ReceiveQueueSize int `mapstructure:"receive_queue_size" validate:"omitempty,gt=0" yaml:"receive_queue_size"`

	// MaxMessageSize bounds the declared size of any single inbound
	// Buffer read from a peer connection; a peer exceeding it has its
	// connection dropped. Accepts human-readable sizes such as "1Gi",
	// "500Mi", or "100MB" in the config file.
	MaxMessageSize bytesize.ByteSize `mapstructure:"max_message_size" validate:"required,gt=0" yaml:"max_message_size"`
}

// ReconnectConfig configures the exponential backoff used to re-establish
// a dropped peer connection.
type ReconnectConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"required,gt=0" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"required,gt=0" yaml:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time" yaml:"max_elapsed_time"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether the metrics server is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ListenAddr is the "host:port" the metrics and health endpoints bind.
	ListenAddr string `mapstructure:"listen_addr" validate:"omitempty" yaml:"listen_addr"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	// Enabled controls whether dispatch spans are recorded.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// SampleRate is the fraction of traces sampled, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`
}

// Load loads configuration from file, environment, and defaults.
//
// Every field is pre-registered with viper.SetDefault before the config
// file is read, so that viper.AutomaticEnv can bind an override for it
// even when no config file sets it and even when Unmarshal runs with no
// file present at all.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)
	setViperDefaults(v, GetDefaultConfig())

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

func setViperDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("node.listen_addr", d.Node.ListenAddr)
	v.SetDefault("node.peers", d.Node.Peers)
	v.SetDefault("node.dispatch_timeout", d.Node.DispatchTimeout)
	v.SetDefault("node.receive_queue_size", d.Node.ReceiveQueueSize)
	v.SetDefault("node.max_message_size", d.Node.MaxMessageSize)

	v.SetDefault("reconnect.initial_interval", d.Reconnect.InitialInterval)
	v.SetDefault("reconnect.max_interval", d.Reconnect.MaxInterval)
	v.SetDefault("reconnect.max_elapsed_time", d.Reconnect.MaxElapsedTime)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)

	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for every custom type
// a Config field can take: ByteSize and time.Duration.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts
// strings and integers to bytesize.ByteSize, so config files can use
// human-readable sizes like "1Gi", "500Mi", "100MB", or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dispatch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dispatch")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
