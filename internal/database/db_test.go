package database

import (
	"path/filepath"
	"testing"
)

func TestInitializeCreatesSchema(t *testing.T) {
	db, err := Initialize(filepath.Join(t.TempDir(), "arcana.db"))
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"credit_transactions", "rate_limits", "audit_log"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %q missing: %v", table, err)
		}
	}
}

// A path that already carries DSN options must still get the transaction
// lock mode appended rather than producing a second "?".
func TestInitializeWithExistingDSNOptions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "arcana.db") + "?_busy_timeout=1000"

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT INTO credit_transactions (id, user_id, delta, type) VALUES ('tx-1', 1, 3, 'welcome')`); err != nil {
		t.Errorf("insert failed: %v", err)
	}
}
