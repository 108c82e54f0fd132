/*
Package monitoring provides Prometheus metrics for transfers and sessions.

# Metrics

  - transfers_started_total{kind,config}
  - transfers_completed_total{kind,outcome}
  - transfers_active
  - transfer_duration_seconds{kind}
  - bytes_received_total, bytes_sent_total
  - sessions_active, sessions_created_total{kind}, sessions_invalidated_total

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics("httplayer", reg)

	metrics.RecordTransferStarted("data", "foreground")
	metrics.RecordTransferCompleted("data", monitoring.OutcomeSuccess, elapsed)

Expose the registry with promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).
*/
package monitoring
