package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counter metrics (monotonically increasing)
var (
	// ReadingsTotal counts reading requests by status (success, insufficient_credits, failure)
	ReadingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_readings_total",
			Help: "Total number of reading requests",
		},
		[]string{"status"},
	)

	// CreditsSpentTotal counts credits debited through the ledger
	CreditsSpentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_credits_spent_total",
			Help: "Total credits debited from user balances",
		},
	)

	// CreditsGrantedTotal counts credits granted by transaction type (purchase, bonus, welcome, refund, adjustment)
	CreditsGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_credits_granted_total",
			Help: "Total credits granted to user balances",
		},
		[]string{"type"},
	)

	// SpendRejectionsTotal counts debits rejected for insufficient balance
	SpendRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_spend_rejections_total",
			Help: "Total debits rejected because the balance was insufficient",
		},
	)

	// RateLimitChecksTotal counts rate limit admissions by policy and outcome (allowed, limited)
	RateLimitChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_rate_limit_checks_total",
			Help: "Total rate limit admission checks",
		},
		[]string{"policy", "outcome"},
	)

	// HTTPRequestsTotal counts total HTTP requests by method, path, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ErrorsTotal counts application errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_errors_total",
			Help: "Total number of application errors",
		},
		[]string{"type"},
	)
)

// Histogram metrics (distributions)
var (
	// HTTPRequestDuration tracks HTTP request latency by method and path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arcana_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// Health check metrics
var (
	// HealthStatus is a gauge representing current health status
	// Values: 0 = unhealthy, 1 = degraded, 2 = healthy
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arcana_health_status",
			Help: "Current health status (0=unhealthy, 1=degraded, 2=healthy)",
		},
	)
)
