// Package config provides 12-factor configuration for the HTTP client.
//
// Configuration starts from Default, optionally overlays a YAML or TOML file,
// and finally applies environment variables.
//
// Configuration Sections:
//   - Client: user agent, timeouts, connection limits, HTTP/2
//   - RateLimit: per-session request rate
//   - Breaker: per-host circuit breaker
//   - Download: staging directory and chunk size
//   - Logging: level, format and rotated log file
//   - Metrics: prometheus namespace
//
// Example Usage:
//
//	cfg, err := config.LoadFile("httplayer.yaml")
//	if err != nil {
//		return err
//	}
//	c := client.New(client.Config{Transport: cfg.TransportOptions()})
//
// Environment Variables:
//   - HTTP_USER_AGENT, HTTP_TIMEOUT, HTTP_RESOURCE_TIMEOUT, HTTP_MAX_CONNS_PER_HOST, HTTP2_ENABLED
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - BREAKER_ENABLED, BREAKER_MAX_FAILURES, BREAKER_TIMEOUT
//   - DOWNLOAD_TEMP_DIR, DOWNLOAD_CHUNK_SIZE
//   - LOG_LEVEL, LOG_DEV, LOG_FILE
//   - METRICS_NAMESPACE
package config
