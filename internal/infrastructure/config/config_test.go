package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/infrastructure/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Client config
	assert.Equal(t, "httplayer/1.0", cfg.Client.UserAgent)
	assert.Equal(t, Duration(30*time.Second), cfg.Client.Timeout)
	assert.True(t, cfg.Client.HTTP2)

	// Rate limit and breaker are opt-in
	assert.False(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.Breaker.MaxFailures)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, "httplayer", cfg.Metrics.Namespace)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "httplayer/1.0", cfg.Client.UserAgent)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"HTTP_USER_AGENT":         "agent/2",
		"HTTP_TIMEOUT":            "5s",
		"HTTP_RESOURCE_TIMEOUT":   "1m",
		"HTTP_MAX_CONNS_PER_HOST": "8",
		"HTTP2_ENABLED":           "false",
		"RATE_LIMIT_RPS":          "2.5",
		"RATE_LIMIT_BURST":        "3",
		"RATE_LIMIT_ENABLED":      "true",
		"BREAKER_ENABLED":         "true",
		"BREAKER_MAX_FAILURES":    "2",
		"BREAKER_TIMEOUT":         "10s",
		"DOWNLOAD_TEMP_DIR":       "/var/tmp/dl",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"LOG_FILE":                "/var/log/httplayer.log",
		"METRICS_NAMESPACE":       "edge",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "agent/2", cfg.Client.UserAgent)
	assert.Equal(t, Duration(5*time.Second), cfg.Client.Timeout)
	assert.Equal(t, Duration(time.Minute), cfg.Client.ResourceTimeout)
	assert.Equal(t, 8, cfg.Client.MaxConnsPerHost)
	assert.False(t, cfg.Client.HTTP2)

	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(2), cfg.Breaker.MaxFailures)
	assert.Equal(t, Duration(10*time.Second), cfg.Breaker.Timeout)

	assert.Equal(t, "/var/tmp/dl", cfg.Download.TempDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "/var/log/httplayer.log", cfg.Logging.File)
	assert.Equal(t, "edge", cfg.Metrics.Namespace)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Duration(2*time.Second), cfg.Client.Timeout)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, "httplayer/1.0", cfg.Client.UserAgent)
	assert.True(t, cfg.Client.HTTP2)
}

func TestLoadInvalidEnvironment(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, Duration(30*time.Second), cfg.Client.Timeout)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "httplayer.yaml",
			content: `client:
  user_agent: from-file
  timeout: 12s
breaker:
  enabled: true
  max_failures: 3
logging:
  level: warn
`,
		},
		{
			name: "toml",
			file: "httplayer.toml",
			content: `[client]
user_agent = "from-file"
timeout = "12s"

[breaker]
enabled = true
max_failures = 3

[logging]
level = "warn"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := LoadFile(path)
			require.NoError(t, err)

			assert.Equal(t, "from-file", cfg.Client.UserAgent)
			assert.Equal(t, Duration(12*time.Second), cfg.Client.Timeout)
			assert.True(t, cfg.Breaker.Enabled)
			assert.Equal(t, uint32(3), cfg.Breaker.MaxFailures)
			assert.Equal(t, "warn", cfg.Logging.Level)

			// Untouched sections keep defaults
			assert.True(t, cfg.Client.HTTP2)
			assert.Equal(t, "httplayer", cfg.Metrics.Namespace)
		})
	}

	t.Run("environment wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.yml")
		require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644))
		t.Setenv("LOG_LEVEL", "error")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Logging.Level)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.ini")
		require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))
		_, err := LoadFile(path)
		assert.ErrorContains(t, err, "unsupported config format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestTransportOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.TransportOptions()

	assert.Equal(t, 30*time.Second, opts.RequestTimeout)
	assert.Zero(t, opts.RateLimit)
	assert.Nil(t, opts.Breaker)

	cfg.RateLimit.Enabled = true
	cfg.Breaker.Enabled = true
	cfg.Breaker.MaxFailures = 2
	opts = cfg.TransportOptions()

	assert.Equal(t, 100.0, opts.RateLimit)
	assert.Equal(t, 200, opts.RateBurst)
	require.NotNil(t, opts.Breaker)
	assert.False(t, opts.Breaker.ReadyToTrip(resilience.Counts{ConsecutiveFailures: 1}))
	assert.True(t, opts.Breaker.ReadyToTrip(resilience.Counts{ConsecutiveFailures: 2}))
}

func TestLoggingConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Development = true
	cfg.Logging.Level = ""
	cfg.Logging.File = "out.log"

	lc := cfg.LoggingConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.True(t, lc.Development)
	assert.Equal(t, "out.log", lc.Filename)
}
