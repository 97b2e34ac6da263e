package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/devicesession/internal/domain/logs"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	Device    DeviceConfig
	Bridge    BridgeConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8090"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// DeviceConfig holds device session configuration.
type DeviceConfig struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"3s"`
	LogLevel     string        `envconfig:"DEVICE_LOG_LEVEL" default:"INFO"`
	DevicesFile  string        `envconfig:"DEVICES_FILE"`
	SourceMaps   bool          `envconfig:"SOURCE_MAPS" default:"true"`
}

// BridgeConfig holds device agent client configuration.
type BridgeConfig struct {
	Timeout          time.Duration `envconfig:"BRIDGE_TIMEOUT" default:"10s"`
	RetryMax         int           `envconfig:"BRIDGE_RETRY_MAX" default:"2"`
	FailureThreshold int           `envconfig:"BRIDGE_FAILURE_THRESHOLD" default:"5"`
	CoolDown         time.Duration `envconfig:"BRIDGE_COOLDOWN" default:"10s"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8090",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Device: DeviceConfig{
			PollInterval: 3 * time.Second,
			LogLevel:     string(logs.LevelInfo),
			SourceMaps:   true,
		},
		Bridge: BridgeConfig{
			Timeout:          10 * time.Second,
			RetryMax:         2,
			FailureThreshold: 5,
			CoolDown:         10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.Device.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.Device.PollInterval))
	}
	if _, err := logs.ParseLogLevel(c.Device.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("DEVICE_LOG_LEVEL: %w", err))
	}
	if c.Bridge.RetryMax < 0 {
		errs = append(errs, fmt.Errorf("BRIDGE_RETRY_MAX must not be negative, got %d", c.Bridge.RetryMax))
	}
	return errors.Join(errs...)
}

// DeviceLogLevel returns the parsed default device log level.
func (c *Config) DeviceLogLevel() logs.LogLevel {
	level, err := logs.ParseLogLevel(c.Device.LogLevel)
	if err != nil {
		return logs.LevelInfo
	}
	return level
}
