package metrics

import (
	"database/sql"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"
)

func setupCollectorDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE credit_transactions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			delta INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE TABLE rate_limits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			identifier TEXT NOT NULL,
			limit_type TEXT NOT NULL,
			request_count INTEGER NOT NULL,
			window_start TEXT NOT NULL,
			window_end TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db
}

func TestLedgerMetricsCollector_EmptyDatabase(t *testing.T) {
	db := setupCollectorDB(t)

	var outstanding, txCount int64
	err := db.QueryRow(`
		SELECT COALESCE(SUM(delta), 0), COUNT(*)
		FROM credit_transactions
	`).Scan(&outstanding, &txCount)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if outstanding != 0 {
		t.Errorf("Expected 0 outstanding credits, got %d", outstanding)
	}
	if txCount != 0 {
		t.Errorf("Expected 0 transactions, got %d", txCount)
	}

	// Collect must not hang or panic on an empty database
	collector := NewLedgerMetricsCollector(db)
	ch := make(chan prometheus.Metric, 16)
	collector.Collect(ch)
	close(ch)

	var n int
	for range ch {
		n++
	}
	if n != 3 {
		t.Errorf("Expected 3 metrics from Collect, got %d", n)
	}
}

func TestLedgerMetricsCollector_WithData(t *testing.T) {
	db := setupCollectorDB(t)

	_, err := db.Exec(`
		INSERT INTO credit_transactions (id, user_id, delta, type, created_at)
		VALUES
			('t1', 1, 10, 'purchase', '2026-01-01T00:00:00Z'),
			('t2', 1, -2, 'reading', '2026-01-02T00:00:00Z'),
			('t3', 2, 3, 'bonus', '2026-01-03T00:00:00Z')
	`)
	if err != nil {
		t.Fatalf("Failed to seed ledger: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO rate_limits (identifier, limit_type, request_count, window_start, window_end)
		VALUES
			('abc', 'reading', 1, datetime('now'), datetime('now', '+60 seconds')),
			('def', 'auth', 1, datetime('now', '-2 hours'), datetime('now', '-1 hour'))
	`)
	if err != nil {
		t.Fatalf("Failed to seed rate limits: %v", err)
	}

	var outstanding, txCount int64
	err = db.QueryRow(`
		SELECT COALESCE(SUM(delta), 0), COUNT(*)
		FROM credit_transactions
	`).Scan(&outstanding, &txCount)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if outstanding != 11 {
		t.Errorf("Expected 11 outstanding credits, got %d", outstanding)
	}
	if txCount != 3 {
		t.Errorf("Expected 3 transactions, got %d", txCount)
	}

	var buckets int64
	err = db.QueryRow(`
		SELECT COUNT(*)
		FROM rate_limits
		WHERE datetime(window_end) > datetime('now')
	`).Scan(&buckets)
	if err != nil {
		t.Fatalf("Rate limit query failed: %v", err)
	}

	if buckets != 1 {
		t.Errorf("Expected 1 open rate limit bucket, got %d", buckets)
	}
}
