// Package main is the httplayer command line client.
//
// Every command issues one transfer through the pooled session manager and
// prints the outcome. Non-2xx responses exit with a non-zero status.
//
// Usage:
//
//	httplayer get https://example.test/items -H 'Accept: application/json'
//	httplayer send POST https://example.test/items --data '{"name":"x"}' --json
//	httplayer upload https://example.test/upload ./report.pdf
//	httplayer download https://example.test/big.iso ./big.iso
//
// Sessions:
//   - default: shared foreground session with a cookie jar
//   - --ephemeral: session without cookies
//   - --background[=id]: background session; waits for its events to drain
//
// Configuration:
//   - --config path.yaml|path.toml
//   - Environment variables (HTTP_TIMEOUT, LOG_LEVEL, ...)
//
// Signals:
//   - SIGINT, SIGTERM: cancel in-flight transfers and exit
package main
