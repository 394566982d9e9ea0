package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.EqualValues(t, 1_000_000, cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.False(t, cfg.RateLimit.Enabled())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("IP", "127.0.0.1")
	t.Setenv("PORT", ":4000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("SEND_BUFFER_SIZE", "16")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")

	cfg := NewConfigFromEnv()

	assert.Equal(t, "127.0.0.1:4000", cfg.Addr())
	assert.Equal(t, []string{"http://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.EqualValues(t, 2048, cfg.MaxMessageSize)
	assert.Equal(t, 16, cfg.SendBufferSize)
	assert.Equal(t, RateLimitConfig{Burst: 5, RefillInterval: 2 * time.Second}, cfg.RateLimit)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "huge")
	t.Setenv("SEND_BUFFER_SIZE", "-1")
	t.Setenv("RATE_LIMIT_BURST", "many")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "0")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := NewConfigFromEnv()
	def := NewConfig()

	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.SendBufferSize, cfg.SendBufferSize)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "ephemeral port", mutate: func(c *Config) { c.Port = "0" }},
		{name: "non-numeric port", mutate: func(c *Config) { c.Port = "http" }, wantErr: true},
		{name: "negative port", mutate: func(c *Config) { c.Port = "-1" }, wantErr: true},
		{name: "port too large", mutate: func(c *Config) { c.Port = "70000" }, wantErr: true},
		{name: "zero message size", mutate: func(c *Config) { c.MaxMessageSize = 0 }, wantErr: true},
		{name: "zero send buffer", mutate: func(c *Config) { c.SendBufferSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, newRateLimiter(RateLimitConfig{}))

	limiter := newRateLimiter(RateLimitConfig{Burst: 3, RefillInterval: time.Hour})
	require.NotNil(t, limiter)
	assert.Equal(t, 3, limiter.Burst())

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "frame %d within burst", i)
	}
	assert.False(t, limiter.Allow(), "burst exhausted")
}

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "wildcard", allowed: []string{"*"}, origin: "https://anything.example", want: true},
		{name: "no origin header", allowed: []string{"http://localhost:3000"}, origin: "", want: true},
		{name: "listed origin", allowed: []string{"http://localhost:3000"}, origin: "http://localhost:3000", want: true},
		{name: "case insensitive", allowed: []string{"HTTP://LOCALHOST:3000"}, origin: "http://localhost:3000", want: true},
		{name: "path ignored", allowed: []string{"http://localhost:3000/app"}, origin: "http://localhost:3000", want: true},
		{name: "unlisted origin", allowed: []string{"http://localhost:3000"}, origin: "http://evil.example", want: false},
		{name: "different port", allowed: []string{"http://localhost:3000"}, origin: "http://localhost:3001", want: false},
		{name: "malformed origin", allowed: []string{"http://localhost:3000"}, origin: "not a url", want: false},
		{name: "invalid config entry dropped", allowed: []string{"localhost"}, origin: "http://localhost", want: false},
		{name: "empty allow list", allowed: nil, origin: "http://localhost:3000", want: false},
		{name: "entries trimmed", allowed: []string{"", "  http://localhost:3000  "}, origin: "http://localhost:3000", want: true},
		{name: "wildcard among entries", allowed: []string{"bogus", "*"}, origin: "http://evil.example", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.allowed, discardLogger())
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, policy.checkOrigin(req))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("client_evicted", "client_id", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "client_evicted", entry["msg"])
	assert.Equal(t, "abc", entry["client_id"])

	buf.Reset()
	NewLogger(&buf, "bogus", "bogus").Info("chat server listening", "addr", "0.0.0.0:3000")
	assert.Contains(t, buf.String(), "msg=\"chat server listening\"")
	assert.Contains(t, buf.String(), "addr=0.0.0.0:3000")
}
