package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 100, cfg.Chat.HistoryCapacity)
	assert.Equal(t, 250*time.Millisecond, cfg.Chat.SendTimeout)
	assert.Equal(t, 2*time.Second, cfg.Stream.StopGrace)

	medium, ok := cfg.Stream.Qualities["medium"]
	require.True(t, ok)
	assert.Equal(t, 640, medium.Width)
	assert.Equal(t, 480, medium.Height)
	assert.Equal(t, 24, medium.TargetFPS)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoad_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  address: ":9090"
chat:
  history_capacity: 50
stream:
  max_streams: 4
  qualities:
    low:
      width: 160
      height: 120
      target_fps: 10
      encode_quality: 40
logging:
  level: "debug"
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 50, cfg.Chat.HistoryCapacity)
	assert.Equal(t, 4, cfg.Stream.MaxStreams)
	assert.Equal(t, "debug", cfg.Logging.Level)

	low, ok := cfg.Stream.Qualities["low"]
	require.True(t, ok)
	assert.Equal(t, 160, low.Width)

	// Untouched sections keep their defaults.
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIVECAST_SERVER_ADDRESS", ":7070")
	t.Setenv("LIVECAST_LOG_LEVEL", "warn")
	t.Setenv("LIVECAST_JWT_SECRET", "env-secret")

	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"zero history capacity", func(c *Config) { c.Chat.HistoryCapacity = 0 }},
		{"negative max streams", func(c *Config) { c.Stream.MaxStreams = -1 }},
		{"zero stop grace", func(c *Config) { c.Stream.StopGrace = 0 }},
		{"zero device count", func(c *Config) { c.Stream.DeviceCount = 0 }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"zero ping interval", func(c *Config) { c.Gateway.PingInterval = 0 }},
		{"bad encode quality", func(c *Config) {
			c.Stream.Qualities["low"] = Quality{Width: 320, Height: 240, TargetFPS: 15, EncodeQuality: 150}
		}},
		{"tracing enabled without url", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.JaegerURL = ""
		}},
		{"rate limiting enabled without rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.RequestsPerSecond = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
