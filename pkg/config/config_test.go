package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dispatchmesh/dispatch/internal/bytesize"
)

func TestLoadAppliesDefaultsOnTopOfPartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
logging:
  level: "debug"

node:
  listen_addr: "127.0.0.1:7171"
  peers:
    - "127.0.0.1:7172"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected normalized level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format text, got %q", cfg.Logging.Format)
	}
	if cfg.Node.ListenAddr != "127.0.0.1:7171" {
		t.Errorf("expected configured listen_addr to survive, got %q", cfg.Node.ListenAddr)
	}
	if len(cfg.Node.Peers) != 1 || cfg.Node.Peers[0] != "127.0.0.1:7172" {
		t.Errorf("expected one peer 127.0.0.1:7172, got %v", cfg.Node.Peers)
	}
	if cfg.Node.DispatchTimeout != 5*time.Second {
		t.Errorf("expected default dispatch_timeout 5s, got %v", cfg.Node.DispatchTimeout)
	}
	if cfg.Reconnect.InitialInterval != 500*time.Millisecond {
		t.Errorf("expected default initial_interval 500ms, got %v", cfg.Reconnect.InitialInterval)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected default shutdown_timeout 10s, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoadWithNoFileReturnsValidDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir) // no config.yaml written under here

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.ListenAddr == "" {
		t.Error("expected a default listen_addr")
	}
}

func TestLoadRespectsEnvironmentOverride(t *testing.T) {
	t.Setenv("DISPATCH_NODE_LISTEN_ADDR", "127.0.0.1:9999")
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("expected env override 127.0.0.1:9999, got %q", cfg.Node.ListenAddr)
	}
}

func TestLoadParsesHumanReadableMaxMessageSize(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
node:
  listen_addr: "127.0.0.1:7171"
  max_message_size: "128Mi"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.MaxMessageSize != 128*bytesize.MiB {
		t.Errorf("expected max_message_size 128Mi, got %v", cfg.Node.MaxMessageSize)
	}
}

func TestLoadDefaultsMaxMessageSizeWhenUnset(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.MaxMessageSize != 64*bytesize.MiB {
		t.Errorf("expected default max_message_size 64Mi, got %v", cfg.Node.MaxMessageSize)
	}
}

func TestValidateRejectsMissingListenAddr(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Node.ListenAddr = ""

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for empty listen_addr")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for invalid log level")
	}
}
