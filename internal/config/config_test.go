package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.UDPIP != "0.0.0.0" {
		t.Errorf("UDPIP = %q, want 0.0.0.0", cfg.UDPIP)
	}
	if cfg.UDPPort != 9000 {
		t.Errorf("UDPPort = %d, want 9000", cfg.UDPPort)
	}
	if cfg.SessionTimeoutSec != 30 {
		t.Errorf("SessionTimeoutSec = %d, want 30", cfg.SessionTimeoutSec)
	}
	if cfg.GracefulShutdownRate != 10 {
		t.Errorf("GracefulShutdownRate = %d, want 10", cfg.GracefulShutdownRate)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.CDRFile != "cdr.log" {
		t.Errorf("CDRFile = %q, want cdr.log", cfg.CDRFile)
	}
	if len(cfg.Blacklist) != 0 {
		t.Errorf("Blacklist = %v, want empty", cfg.Blacklist)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
udp_ip: 127.0.0.1
udp_port: 9100
session_timeout_sec: 5
graceful_shutdown_rate: 2
http_port: 8180
cdr_file: /tmp/test-cdr.log
blacklist:
  - "001010123456789"
  - "001010000000001"
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.UDPIP != "127.0.0.1" {
		t.Errorf("UDPIP = %q, want 127.0.0.1", cfg.UDPIP)
	}
	if cfg.UDPPort != 9100 {
		t.Errorf("UDPPort = %d, want 9100", cfg.UDPPort)
	}
	if cfg.SessionTimeoutSec != 5 {
		t.Errorf("SessionTimeoutSec = %d, want 5", cfg.SessionTimeoutSec)
	}
	if cfg.GracefulShutdownRate != 2 {
		t.Errorf("GracefulShutdownRate = %d, want 2", cfg.GracefulShutdownRate)
	}
	if len(cfg.Blacklist) != 2 || cfg.Blacklist[0] != "001010123456789" {
		t.Errorf("Blacklist = %v, want two entries", cfg.Blacklist)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PGWGW_UDP_PORT", "9555")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("udp_port: 9100\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UDPPort != 9555 {
		t.Errorf("UDPPort = %d, want env override 9555", cfg.UDPPort)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty udp_ip", func(c *Config) { c.UDPIP = "" }},
		{"udp_port out of range", func(c *Config) { c.UDPPort = 70000 }},
		{"negative udp_port", func(c *Config) { c.UDPPort = -1 }},
		{"zero session timeout", func(c *Config) { c.SessionTimeoutSec = 0 }},
		{"zero shutdown rate", func(c *Config) { c.GracefulShutdownRate = 0 }},
		{"empty cdr_file", func(c *Config) { c.CDRFile = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate passed, want error")
			}
		})
	}
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	if _, err := Load("/nonexistent/pgw.yaml"); err == nil {
		t.Error("Load of explicit nonexistent path passed, want error")
	}
}
