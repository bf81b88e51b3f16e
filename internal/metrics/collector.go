package metrics

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetricsCollector collects ledger gauges from the database on each scrape
type LedgerMetricsCollector struct {
	db *sql.DB

	creditsOutstanding *prometheus.Desc
	ledgerTransactions *prometheus.Desc
	activeRateBuckets  *prometheus.Desc
}

// NewLedgerMetricsCollector creates a new collector
func NewLedgerMetricsCollector(db *sql.DB) *LedgerMetricsCollector {
	return &LedgerMetricsCollector{
		db: db,
		creditsOutstanding: prometheus.NewDesc(
			"arcana_credits_outstanding",
			"Sum of all user balances (total unsettled credits)",
			nil, nil,
		),
		ledgerTransactions: prometheus.NewDesc(
			"arcana_ledger_transactions_count",
			"Number of rows in the credit ledger",
			nil, nil,
		),
		activeRateBuckets: prometheus.NewDesc(
			"arcana_rate_limit_buckets_count",
			"Number of rate limit buckets with an open window",
			nil, nil,
		),
	}
}

// Describe sends metric descriptors to Prometheus
func (c *LedgerMetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.creditsOutstanding
	ch <- c.ledgerTransactions
	ch <- c.activeRateBuckets
}

// Collect fetches current gauges from the database and sends to Prometheus
func (c *LedgerMetricsCollector) Collect(ch chan<- prometheus.Metric) {
	var outstanding int64
	var txCount int64
	err := c.db.QueryRow(`
		SELECT COALESCE(SUM(delta), 0), COUNT(*)
		FROM credit_transactions
	`).Scan(&outstanding, &txCount)

	if err != nil {
		slog.Error("failed to query ledger metrics", "error", err)
		outstanding, txCount = 0, 0
	}

	ch <- prometheus.MustNewConstMetric(c.creditsOutstanding, prometheus.GaugeValue, float64(outstanding))
	ch <- prometheus.MustNewConstMetric(c.ledgerTransactions, prometheus.GaugeValue, float64(txCount))

	var buckets int64
	err = c.db.QueryRow(`
		SELECT COUNT(*)
		FROM rate_limits
		WHERE datetime(window_end) > datetime('now')
	`).Scan(&buckets)

	if err != nil {
		slog.Error("failed to query rate limit metrics", "error", err)
		buckets = 0
	}

	ch <- prometheus.MustNewConstMetric(c.activeRateBuckets, prometheus.GaugeValue, float64(buckets))
}
