// Package relay provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay service.
package relay

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection inbound frame
// rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay configuration settings including transport hardening
// controls. The listen port is the only setting the protocol itself requires;
// everything else has safe defaults.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	SendQueueSize  int
	RateLimit      RateLimitConfig
	LogLevel       string
}

// NewConfig creates a Config instance populated with default values for all
// settings.
func NewConfig() *Config {
	return &Config{
		Port:           ":8080",
		AllowedOrigins: []string{"*"},
		MaxMessageSize: 4096,
		SendQueueSize:  64,
		RateLimit: RateLimitConfig{
			Burst:          20,
			RefillInterval: time.Second,
		},
		LogLevel: "info",
	}
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()

	if port := os.Getenv("RELAY_PORT"); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if queueSize := os.Getenv("SEND_QUEUE_SIZE"); queueSize != "" {
		cfg.SendQueueSize = parseIntValue(queueSize, cfg.SendQueueSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// sanitized returns a copy of the config with nonsense values replaced by the
// defaults. Ports without a leading colon are accepted as bare port numbers.
func (c Config) sanitized() Config {
	def := NewConfig()

	if c.Port == "" {
		c.Port = def.Port
	} else if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}

	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}

	if c.SendQueueSize <= 0 {
		c.SendQueueSize = def.SendQueueSize
	}

	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}

	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}

	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)

	return c
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
