// Package config provides 12-factor configuration for the device session
// service.
//
// Configuration is loaded from environment variables with defaults. CLI flags
// can override environment variables.
//
// Configuration Sections:
//   - Server: inspection API listen address and shutdown timeout
//   - Logging: log level and output format
//   - Device: poll interval, default device log level, inventory file
//   - Bridge: device agent timeouts, retries and circuit breaker
//   - RateLimit: per-IP rate limiting of the inspection API
//
// The device inventory is a separate YAML or TOML file (DEVICES_FILE) listing
// the devices to attach and the agent serving each one.
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - POLL_INTERVAL, DEVICE_LOG_LEVEL, DEVICES_FILE, SOURCE_MAPS
//   - BRIDGE_TIMEOUT, BRIDGE_RETRY_MAX, BRIDGE_FAILURE_THRESHOLD, BRIDGE_COOLDOWN
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
