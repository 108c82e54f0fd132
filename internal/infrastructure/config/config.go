package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/httplayer/internal/logging"
	"github.com/GriffinCanCode/httplayer/internal/transport"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all client configuration.
type Config struct {
	Client    ClientConfig    `yaml:"client" toml:"client"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Breaker   BreakerConfig   `yaml:"breaker" toml:"breaker"`
	Download  DownloadConfig  `yaml:"download" toml:"download"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ClientConfig holds transport settings shared by every session.
type ClientConfig struct {
	UserAgent       string   `envconfig:"HTTP_USER_AGENT" yaml:"user_agent" toml:"user_agent"`
	Timeout         Duration `envconfig:"HTTP_TIMEOUT" yaml:"timeout" toml:"timeout"`
	ResourceTimeout Duration `envconfig:"HTTP_RESOURCE_TIMEOUT" yaml:"resource_timeout" toml:"resource_timeout"`
	MaxConnsPerHost int      `envconfig:"HTTP_MAX_CONNS_PER_HOST" yaml:"max_conns_per_host" toml:"max_conns_per_host"`
	HTTP2           bool     `envconfig:"HTTP2_ENABLED" yaml:"http2" toml:"http2"`
}

// RateLimitConfig holds per-session rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" yaml:"rps" toml:"rps"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool    `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// BreakerConfig holds per-host circuit breaker configuration.
type BreakerConfig struct {
	Enabled     bool     `envconfig:"BREAKER_ENABLED" yaml:"enabled" toml:"enabled"`
	MaxFailures uint32   `envconfig:"BREAKER_MAX_FAILURES" yaml:"max_failures" toml:"max_failures"`
	Timeout     Duration `envconfig:"BREAKER_TIMEOUT" yaml:"timeout" toml:"timeout"`
}

// DownloadConfig holds download staging configuration.
type DownloadConfig struct {
	TempDir   string `envconfig:"DOWNLOAD_TEMP_DIR" yaml:"temp_dir" toml:"temp_dir"`
	ChunkSize int    `envconfig:"DOWNLOAD_CHUNK_SIZE" yaml:"chunk_size" toml:"chunk_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
	File        string `envconfig:"LOG_FILE" yaml:"file" toml:"file"`
}

// MetricsConfig holds prometheus configuration.
type MetricsConfig struct {
	Namespace string `envconfig:"METRICS_NAMESPACE" yaml:"namespace" toml:"namespace"`
}

// Duration is a time.Duration written as "30s" in files and environment.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Load loads configuration from environment variables over Default.
// Variables that are unset keep their default value.
func Load() (*Config, error) {
	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads a YAML or TOML file, chosen by extension, over Default and
// then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			UserAgent:       "httplayer/1.0",
			Timeout:         Duration(30 * time.Second),
			ResourceTimeout: Duration(10 * time.Minute),
			HTTP2:           true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           false,
		},
		Breaker: BreakerConfig{
			Enabled:     false,
			MaxFailures: 5,
			Timeout:     Duration(30 * time.Second),
		},
		Download: DownloadConfig{
			ChunkSize: 32 * 1024,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Namespace: "httplayer",
		},
	}
}

// TransportOptions maps the configuration onto transport defaults.
func (c *Config) TransportOptions() transport.Options {
	opts := transport.Options{
		UserAgent:       c.Client.UserAgent,
		RequestTimeout:  time.Duration(c.Client.Timeout),
		ResourceTimeout: time.Duration(c.Client.ResourceTimeout),
		MaxConnsPerHost: c.Client.MaxConnsPerHost,
		HTTP2:           c.Client.HTTP2,
		TempDir:         c.Download.TempDir,
		ChunkSize:       c.Download.ChunkSize,
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond > 0 {
		opts.RateLimit = c.RateLimit.RequestsPerSecond
		opts.RateBurst = c.RateLimit.Burst
	}
	if c.Breaker.Enabled {
		maxFailures := c.Breaker.MaxFailures
		opts.Breaker = &resilience.Settings{
			MaxRequests: 1,
			Timeout:     time.Duration(c.Breaker.Timeout),
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
		}
	}
	return opts
}

// LoggingConfig maps the configuration onto logger settings.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Logging.Development {
		cfg = logging.DevelopmentConfig()
	}
	if c.Logging.Level != "" {
		cfg.Level = c.Logging.Level
	}
	cfg.Filename = c.Logging.File
	return cfg
}
