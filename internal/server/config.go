// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = "3000"
	defaultMaxMessageSize  = 1_000_000
	defaultSendBufferSize  = 256
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate
// limiting. A Burst of zero disables the limiter.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Enabled reports whether inbound frames are rate limited.
func (r RateLimitConfig) Enabled() bool {
	return r.Burst > 0
}

// Config holds the relay settings.
type Config struct {
	Host            string
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	SendBufferSize  int
	RateLimit       RateLimitConfig
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Host:            defaultHost,
		Port:            defaultPort,
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  defaultMaxMessageSize,
		SendBufferSize:  defaultSendBufferSize,
		RateLimit:       RateLimitConfig{RefillInterval: defaultRefillInterval},
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}
	return NewConfigFromEnv()
}

// NewConfigFromEnv creates a Config from environment variables. Unset
// variables keep their defaults; malformed ones are logged and ignored.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()

	if host := os.Getenv("IP"); host != "" {
		cfg.Host = strings.TrimSpace(host)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = strings.TrimPrefix(strings.TrimSpace(port), ":")
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64Value("MAX_MESSAGE_SIZE", maxSize, cfg.MaxMessageSize)
	}
	if size := os.Getenv("SEND_BUFFER_SIZE"); size != "" {
		cfg.SendBufferSize = parseIntValue("SEND_BUFFER_SIZE", size, cfg.SendBufferSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue("RATE_LIMIT_BURST", burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}
	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseDuration("SHUTDOWN_TIMEOUT", timeout, cfg.ShutdownTimeout)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(level))
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(format))
	}

	return cfg
}

// Addr returns the host:port pair the server binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the settings that cannot be defaulted. Port must be numeric
// and within 0-65535; 0 binds an ephemeral port chosen by the kernel.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("max message size must be positive, got %d", c.MaxMessageSize)
	}
	if c.SendBufferSize <= 0 {
		return fmt.Errorf("send buffer size must be positive, got %d", c.SendBufferSize)
	}
	return nil
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseInt64Value(name, value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	slog.Warn("ignoring invalid configuration value", "name", name, "value", value)
	return defaultValue
}

func parseIntValue(name, value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
		return parsed
	}
	slog.Warn("ignoring invalid configuration value", "name", name, "value", value)
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	slog.Warn("ignoring invalid configuration value", "name", "RATE_LIMIT_REFILL_INTERVAL", "value", value)
	return defaultValue
}

func parseDuration(name, value string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	slog.Warn("ignoring invalid configuration value", "name", name, "value", value)
	return defaultValue
}
