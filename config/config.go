// Package config holds the realtime service configuration.
package config

import (
	"os"
	"strconv"
)

// Config holds server and session settings.
type Config struct {
	Addr            string `json:"addr"`
	PingInterval    int    `json:"ping_interval_seconds"`
	WriteTimeout    int    `json:"write_timeout_seconds"`
	ReadBufferSize  int    `json:"read_buffer_size"`
	WriteBufferSize int    `json:"write_buffer_size"`

	// Secret signs the platform's session tokens; shared with the REST
	// auth layer.
	Secret string `json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8090",
		PingInterval:    30,
		WriteTimeout:    10,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Secret:          "your-secret-key-change-in-production",
	}
}

// FromEnv loads configuration from environment variables, falling back to
// defaults for any missing values.
func FromEnv() *Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("REALTIME_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if v := os.Getenv("REALTIME_PING_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PingInterval = n
		}
	}
	if v := os.Getenv("REALTIME_WRITE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WriteTimeout = n
		}
	}
	if secret := os.Getenv("SECRET_KEY"); secret != "" {
		cfg.Secret = secret
	}
	return cfg
}
