package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for transfers and sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Transfer metrics
	TransfersStarted   *prometheus.CounterVec
	TransfersCompleted *prometheus.CounterVec
	TransfersActive    prometheus.Gauge
	TransferDuration   *prometheus.HistogramVec
	BytesReceived      prometheus.Counter
	BytesSent          prometheus.Counter

	// Session metrics
	SessionsActive      prometheus.Gauge
	SessionsCreated     *prometheus.CounterVec
	SessionsInvalidated prometheus.Counter

	// Snapshot for quick inspection without scraping
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values
type Snapshot struct {
	Started       int64
	Succeeded     int64
	Failed        int64
	Cancelled     int64
	Active        int64
	BytesReceived int64
	BytesSent     int64
}

// Outcome labels used on TransfersCompleted
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// NewMetrics registers the collectors on reg. A nil reg gets a private
// registry so several clients can live in one process.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "httplayer"
	}
	factory := promauto.With(reg)

	return &Metrics{
		TransfersStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_started_total",
				Help:      "Total number of transfers started",
			},
			[]string{"kind", "config"},
		),
		TransfersCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_completed_total",
				Help:      "Total number of transfers completed",
			},
			[]string{"kind", "outcome"},
		),
		TransfersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transfers_active",
				Help:      "Number of in-flight transfers",
			},
		),
		TransferDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer duration from registration to completion",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		BytesReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_received_total",
				Help:      "Response body bytes received",
			},
		),
		BytesSent: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_sent_total",
				Help:      "Request body bytes sent",
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of pooled sessions",
			},
		),
		SessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Total number of sessions created",
			},
			[]string{"kind"},
		),
		SessionsInvalidated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_invalidated_total",
				Help:      "Total number of sessions torn down",
			},
		),
	}
}

// RecordTransferStarted records a registered transfer
func (m *Metrics) RecordTransferStarted(kind, config string) {
	if m == nil {
		return
	}
	m.TransfersStarted.WithLabelValues(kind, config).Inc()
	m.TransfersActive.Inc()

	m.mu.Lock()
	m.snapshot.Started++
	m.snapshot.Active++
	m.mu.Unlock()
}

// RecordTransferCompleted records a delivered completion
func (m *Metrics) RecordTransferCompleted(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TransfersCompleted.WithLabelValues(kind, outcome).Inc()
	m.TransfersActive.Dec()
	m.TransferDuration.WithLabelValues(kind).Observe(duration.Seconds())

	m.mu.Lock()
	switch outcome {
	case OutcomeSuccess:
		m.snapshot.Succeeded++
	case OutcomeCancelled:
		m.snapshot.Cancelled++
	default:
		m.snapshot.Failed++
	}
	m.snapshot.Active--
	m.mu.Unlock()
}

// AddBytesReceived counts response body bytes
func (m *Metrics) AddBytesReceived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesReceived.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesReceived += int64(n)
	m.mu.Unlock()
}

// AddBytesSent counts request body bytes
func (m *Metrics) AddBytesSent(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesSent.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesSent += n
	m.mu.Unlock()
}

// RecordSessionCreated records a new pooled session
func (m *Metrics) RecordSessionCreated(kind string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(kind).Inc()
	m.SessionsActive.Inc()
}

// RecordSessionInvalidated records a session teardown
func (m *Metrics) RecordSessionInvalidated() {
	if m == nil {
		return
	}
	m.SessionsInvalidated.Inc()
	m.SessionsActive.Dec()
}

// Snapshot returns a copy of the current counters
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
