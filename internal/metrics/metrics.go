package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the sync service.
// A nil *MetricsRegistry is valid and records nothing.
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Accounting platform calls
	ExternalCallsTotal   *prometheus.CounterVec
	ExternalCallDuration *prometheus.HistogramVec

	// Sync outcomes
	SyncOperationsTotal   *prometheus.CounterVec
	SyncDuration          *prometheus.HistogramVec
	LockedPeriodDenials   *prometheus.CounterVec
	TokenRefreshesTotal   *prometheus.CounterVec
	AttachmentUploadTotal *prometheus.CounterVec
	WebhookEventsTotal    *prometheus.CounterVec
}

// NewMetricsRegistry registers every metric with reg. Pass
// prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersync_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgersync_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ledgersync_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		ExternalCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersync_external_calls_total",
				Help: "Calls to the accounting platform by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ExternalCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgersync_external_call_duration_seconds",
				Help:    "Accounting platform call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		SyncOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersync_sync_operations_total",
				Help: "Sync operations by entity type, action and outcome",
			},
			[]string{"entity_type", "action", "outcome"},
		),
		SyncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgersync_sync_duration_seconds",
				Help:    "End-to-end sync latency in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"entity_type", "action"},
		),
		LockedPeriodDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersync_locked_period_denials_total",
				Help: "Sync attempts rejected by the locked period guard",
			},
			[]string{"entity_type"},
		),
		TokenRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersync_token_refreshes_total",
				Help: "OAuth token refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		AttachmentUploadTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersync_attachment_uploads_total",
				Help: "Bill attachment uploads by outcome",
			},
			[]string{"outcome"},
		),
		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersync_webhook_events_total",
				Help: "Inbound webhook entity events by classification",
			},
			[]string{"entity_type", "classification"},
		),
	}
}

func (m *MetricsRegistry) ObserveExternalCall(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.ExternalCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.ExternalCallDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *MetricsRegistry) ObserveSync(entityType, action, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.SyncOperationsTotal.WithLabelValues(entityType, action, outcome).Inc()
	m.SyncDuration.WithLabelValues(entityType, action).Observe(time.Since(started).Seconds())
}

func (m *MetricsRegistry) LockedPeriodDenied(entityType string) {
	if m == nil {
		return
	}
	m.LockedPeriodDenials.WithLabelValues(entityType).Inc()
}

func (m *MetricsRegistry) TokenRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshesTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsRegistry) AttachmentUpload(outcome string) {
	if m == nil {
		return
	}
	m.AttachmentUploadTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsRegistry) WebhookEvent(entityType, classification string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(entityType, classification).Inc()
}
