package handlers

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fjmerc/arcana/internal/audit"
	"github.com/fjmerc/arcana/internal/credits"
	"github.com/fjmerc/arcana/internal/repository"
	"github.com/fjmerc/arcana/internal/repository/sqlite"
)

// newTestService builds a credits service backed by an in-memory SQLite
// ledger, the same storage the handlers run against in production.
func newTestService(t *testing.T) (*credits.Service, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE credit_transactions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			delta INTEGER NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('reading','purchase','bonus','adjustment','refund','welcome')),
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX idx_credit_tx_user ON credit_transactions(user_id, created_at);
	`)
	if err != nil {
		t.Fatalf("failed to create ledger table: %v", err)
	}

	repos, err := sqliteRepos(db)
	if err != nil {
		t.Fatalf("failed to build repositories: %v", err)
	}

	return credits.NewService(repos.Credits, audit.NopSink{}, 3), db
}

func sqliteRepos(db *sql.DB) (*repository.Repositories, error) {
	return sqlite.NewRepositories(db)
}
