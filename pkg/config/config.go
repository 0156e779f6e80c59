package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Quality struct {
	Width         int `yaml:"width"`
	Height        int `yaml:"height"`
	TargetFPS     int `yaml:"target_fps"`
	EncodeQuality int `yaml:"encode_quality"`
}

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Chat struct {
		HistoryCapacity int           `yaml:"history_capacity"`
		MaxRooms        int           `yaml:"max_rooms"`
		SendTimeout     time.Duration `yaml:"send_timeout"`
	} `yaml:"chat"`

	Stream struct {
		MaxStreams        int                `yaml:"max_streams"`
		StopGrace         time.Duration      `yaml:"stop_grace"`
		SendTimeout       time.Duration      `yaml:"send_timeout"`
		DeviceCount       int                `yaml:"device_count"`
		OpenRetryAttempts int                `yaml:"open_retry_attempts"`
		Qualities         map[string]Quality `yaml:"qualities"`
	} `yaml:"stream"`

	Gateway struct {
		PingInterval        time.Duration `yaml:"ping_interval"`
		PongTimeout         time.Duration `yaml:"pong_timeout"`
		ReadTimeout         time.Duration `yaml:"read_timeout"`
		WriteTimeout        time.Duration `yaml:"write_timeout"`
		MaxMessageSizeBytes int64         `yaml:"max_message_size_bytes"`
		MessagesPerSecond   float64       `yaml:"messages_per_second"`
		Burst               int           `yaml:"burst"`
	} `yaml:"gateway"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Chat.HistoryCapacity <= 0 {
		return fmt.Errorf("chat.history_capacity must be > 0")
	}
	if c.Chat.MaxRooms < 0 {
		return fmt.Errorf("chat.max_rooms must be >= 0")
	}
	if c.Chat.SendTimeout <= 0 {
		return fmt.Errorf("chat.send_timeout must be > 0")
	}

	if c.Stream.MaxStreams < 0 {
		return fmt.Errorf("stream.max_streams must be >= 0")
	}
	if c.Stream.StopGrace <= 0 {
		return fmt.Errorf("stream.stop_grace must be > 0")
	}
	if c.Stream.SendTimeout <= 0 {
		return fmt.Errorf("stream.send_timeout must be > 0")
	}
	if c.Stream.DeviceCount <= 0 {
		return fmt.Errorf("stream.device_count must be > 0")
	}
	if c.Stream.OpenRetryAttempts <= 0 {
		return fmt.Errorf("stream.open_retry_attempts must be > 0")
	}
	for name, q := range c.Stream.Qualities {
		if q.Width <= 0 || q.Height <= 0 {
			return fmt.Errorf("stream.qualities.%s: width and height must be > 0", name)
		}
		if q.TargetFPS <= 0 {
			return fmt.Errorf("stream.qualities.%s: target_fps must be > 0", name)
		}
		if q.EncodeQuality <= 0 || q.EncodeQuality > 100 {
			return fmt.Errorf("stream.qualities.%s: encode_quality must be in (0, 100]", name)
		}
	}

	if c.Gateway.PingInterval <= 0 {
		return fmt.Errorf("gateway.ping_interval must be > 0")
	}
	if c.Gateway.PongTimeout <= 0 {
		return fmt.Errorf("gateway.pong_timeout must be > 0")
	}
	if c.Gateway.MaxMessageSizeBytes <= 0 {
		return fmt.Errorf("gateway.max_message_size_bytes must be > 0")
	}
	if c.Gateway.MessagesPerSecond <= 0 {
		return fmt.Errorf("gateway.messages_per_second must be > 0")
	}
	if c.Gateway.Burst <= 0 {
		return fmt.Errorf("gateway.burst must be > 0")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Tracing.Enabled {
		if c.Tracing.ServiceName == "" {
			return fmt.Errorf("tracing.service_name must not be empty when tracing.enabled=true")
		}
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Chat.HistoryCapacity = 100
	cfg.Chat.MaxRooms = 0 // unlimited
	cfg.Chat.SendTimeout = 250 * time.Millisecond

	cfg.Stream.MaxStreams = 16
	cfg.Stream.StopGrace = 2 * time.Second
	cfg.Stream.SendTimeout = 250 * time.Millisecond
	cfg.Stream.DeviceCount = 2
	cfg.Stream.OpenRetryAttempts = 3
	cfg.Stream.Qualities = map[string]Quality{
		"low":    {Width: 320, Height: 240, TargetFPS: 15, EncodeQuality: 50},
		"medium": {Width: 640, Height: 480, TargetFPS: 24, EncodeQuality: 70},
		"high":   {Width: 1280, Height: 720, TargetFPS: 30, EncodeQuality: 85},
	}

	cfg.Gateway.PingInterval = 30 * time.Second
	cfg.Gateway.PongTimeout = 60 * time.Second
	cfg.Gateway.ReadTimeout = 60 * time.Second
	cfg.Gateway.WriteTimeout = 10 * time.Second
	cfg.Gateway.MaxMessageSizeBytes = 64 * 1024
	cfg.Gateway.MessagesPerSecond = 100
	cfg.Gateway.Burst = 200

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.TokenTTL = 24 * time.Hour

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "livecast"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("LIVECAST_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("LIVECAST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("LIVECAST_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
}
