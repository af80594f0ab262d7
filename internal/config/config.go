package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the gateway configuration
type Config struct {
	// UDP settings
	UDPIP   string `mapstructure:"udp_ip"`
	UDPPort int    `mapstructure:"udp_port"`

	// Session settings
	SessionTimeoutSec    int `mapstructure:"session_timeout_sec"`
	GracefulShutdownRate int `mapstructure:"graceful_shutdown_rate"`

	// Admin HTTP plane
	HTTPPort int `mapstructure:"http_port"`

	// Audit log
	CDRFile string `mapstructure:"cdr_file"`

	// Static IMSI blacklist
	Blacklist []string `mapstructure:"blacklist"`

	// Logging
	LogLevel string `mapstructure:"log_level"`

	// Observability
	StatsIntervalSec int    `mapstructure:"stats_interval_sec"`
	PcapFile         string `mapstructure:"pcap_file"`
}

// Load loads configuration from file and environment variables
// Priority order (highest to lowest):
// 1. Environment variables (prefixed with PGWGW_)
// 2. Config file specified by configPath
// 3. config.yaml in standard paths
// 4. Hardcoded defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values (lowest priority)
	setDefaults(v)

	// Set config file paths
	if configPath != "" {
		// Use specified config file
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pgw-gw")
	}

	// Read environment variables (highest priority)
	v.AutomaticEnv()
	v.SetEnvPrefix("PGWGW")

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Warning: No config file found, using defaults and environment variables")
		} else if configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration with every key at its default value
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("default config does not unmarshal: %v", err))
	}
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("udp_ip", "0.0.0.0")
	v.SetDefault("udp_port", 9000)
	v.SetDefault("session_timeout_sec", 30)
	v.SetDefault("graceful_shutdown_rate", 10)
	v.SetDefault("http_port", 8080)
	v.SetDefault("cdr_file", "cdr.log")
	v.SetDefault("blacklist", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("stats_interval_sec", 0)
	v.SetDefault("pcap_file", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.UDPIP == "" {
		return fmt.Errorf("udp_ip is required")
	}
	// Port 0 binds an ephemeral port; used by tests
	if c.UDPPort < 0 || c.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 0 and 65535, got %d", c.UDPPort)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 0 and 65535, got %d", c.HTTPPort)
	}
	if c.SessionTimeoutSec < 1 {
		return fmt.Errorf("session_timeout_sec must be at least 1, got %d", c.SessionTimeoutSec)
	}
	if c.GracefulShutdownRate < 1 {
		return fmt.Errorf("graceful_shutdown_rate must be at least 1, got %d", c.GracefulShutdownRate)
	}
	if c.CDRFile == "" {
		return fmt.Errorf("cdr_file is required")
	}
	if c.StatsIntervalSec < 0 {
		return fmt.Errorf("stats_interval_sec must be non-negative, got %d", c.StatsIntervalSec)
	}
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error, fatal")
	}
	return nil
}
