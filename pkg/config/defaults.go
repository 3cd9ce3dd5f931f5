package config

import (
	"strings"
	"time"

	"github.com/dispatchmesh/dispatch/internal/bytesize"
)

// GetDefaultConfig returns a Config populated entirely with defaults,
// suitable for a single-node run with no config file.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in any zero-valued fields with their defaults.
// Explicit non-zero values loaded from file or env are preserved; an
// explicit zero (such as a telemetry sample_rate of 0) cannot be told apart
// from an unset field and is replaced by its default too.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyNodeDefaults(&cfg.Node)
	applyReconnectDefaults(&cfg.Reconnect)
	applyMetricsDefaults(&cfg.Metrics)
	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyNodeDefaults(cfg *NodeConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0:7070"
	}
	if cfg.DispatchTimeout == 0 {
		cfg.DispatchTimeout = 5 * time.Second
	}
	if cfg.ReceiveQueueSize == 0 {
		cfg.ReceiveQueueSize = 256
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 64 * bytesize.MiB
	}
}

func applyReconnectDefaults(cfg *ReconnectConfig) {
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0:9090"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}
