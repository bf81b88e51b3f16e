package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for audit webhook delivery
var (
	// EventsTotal counts events accepted for delivery by event type
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_audit_webhook_events_total",
			Help: "Total number of audit events accepted for webhook delivery",
		},
		[]string{"event"},
	)

	// DeliveriesTotal counts final delivery outcomes by event type and status
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_audit_webhook_deliveries_total",
			Help: "Total number of audit webhook deliveries",
		},
		[]string{"event", "status"},
	)

	// DeliveryDuration tracks delivery latency by event type
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arcana_audit_webhook_delivery_duration_seconds",
			Help:    "Audit webhook delivery latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"event"},
	)

	// RetriesTotal counts retry attempts by event type
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_audit_webhook_retries_total",
			Help: "Total number of audit webhook retry attempts",
		},
		[]string{"event"},
	)

	// QueueSize is a gauge representing current event queue size
	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arcana_audit_webhook_queue_size",
			Help: "Current size of the audit webhook event queue",
		},
	)

	// DroppedEventsTotal counts events dropped due to a full queue
	DroppedEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_audit_webhook_dropped_events_total",
			Help: "Total number of audit events dropped due to full queue",
		},
	)
)

// PrometheusMetrics implements MetricsRecorder using Prometheus
type PrometheusMetrics struct{}

// NewPrometheusMetrics creates a new Prometheus metrics recorder
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

// RecordEvent records an event accepted for delivery
func (m *PrometheusMetrics) RecordEvent(eventType string) {
	EventsTotal.WithLabelValues(eventType).Inc()
}

// RecordDelivery records a final delivery outcome
func (m *PrometheusMetrics) RecordDelivery(eventType, status string) {
	DeliveriesTotal.WithLabelValues(eventType, status).Inc()
}

// RecordDeliveryDuration records delivery latency
func (m *PrometheusMetrics) RecordDeliveryDuration(eventType string, duration time.Duration) {
	DeliveryDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordRetry records a retry attempt
func (m *PrometheusMetrics) RecordRetry(eventType string) {
	RetriesTotal.WithLabelValues(eventType).Inc()
}

// RecordDroppedEvent records a dropped event
func (m *PrometheusMetrics) RecordDroppedEvent() {
	DroppedEventsTotal.Inc()
}

// SetQueueSize sets the current queue size
func (m *PrometheusMetrics) SetQueueSize(size int) {
	QueueSize.Set(float64(size))
}
