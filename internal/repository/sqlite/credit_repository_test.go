package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fjmerc/arcana/internal/database"
	"github.com/fjmerc/arcana/internal/models"
	"github.com/fjmerc/arcana/internal/repository"
)

// setupCreditTestDB creates an in-memory SQLite database with the ledger table.
func setupCreditTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Force single connection for in-memory databases
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

	return db
}

func TestCreditRepository_BalanceStartsAtZero(t *testing.T) {
	repo := NewCreditRepository(setupCreditTestDB(t))

	balance, err := repo.GetBalance(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Credits != 0 {
		t.Errorf("Credits = %d, want 0 for user with no transactions", balance.Credits)
	}
	if balance.UserID != 42 {
		t.Errorf("UserID = %d, want 42", balance.UserID)
	}
}

func TestCreditRepository_CreditThenSpend(t *testing.T) {
	repo := NewCreditRepository(setupCreditTestDB(t))
	ctx := context.Background()

	record, err := repo.Credit(ctx, 1, 10, models.TransactionPurchase, "starter pack")
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if record.Delta != 10 {
		t.Errorf("credit Delta = %d, want 10", record.Delta)
	}
	if record.ID == "" {
		t.Error("credit transaction has empty ID")
	}

	debit, err := repo.Spend(ctx, 1, 3, models.TransactionReading, "three card spread")
	if err != nil {
		t.Fatalf("Spend failed: %v", err)
	}
	if debit.Delta != -3 {
		t.Errorf("spend Delta = %d, want -3", debit.Delta)
	}

	balance, err := repo.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance.Credits != 7 {
		t.Errorf("Credits = %d, want 7", balance.Credits)
	}
}

func TestCreditRepository_SpendRejectsInsufficientBalance(t *testing.T) {
	repo := NewCreditRepository(setupCreditTestDB(t))
	ctx := context.Background()

	if _, err := repo.Credit(ctx, 1, 2, models.TransactionWelcome, ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	_, err := repo.Spend(ctx, 1, 5, models.TransactionReading, "")
	if !errors.Is(err, repository.ErrInsufficientCredits) {
		t.Fatalf("Spend error = %v, want ErrInsufficientCredits", err)
	}

	// A rejected spend must write zero rows: the balance is unchanged.
	balance, err := repo.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance.Credits != 2 {
		t.Errorf("Credits = %d, want 2 after rejected spend", balance.Credits)
	}

	history, err := repo.GetHistory(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history has %d entries, want 1 (rejected spend must not append)", len(history))
	}
}

func TestCreditRepository_SpendValidation(t *testing.T) {
	repo := NewCreditRepository(setupCreditTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name   string
		amount int64
		txType models.TransactionType
	}{
		{"zero amount", 0, models.TransactionReading},
		{"negative amount", -1, models.TransactionReading},
		{"unknown type", 1, models.TransactionType("gift")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Spend(ctx, 1, tt.amount, tt.txType, "")
			if !errors.Is(err, repository.ErrInvalidInput) {
				t.Errorf("Spend error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestCreditRepository_UserIsolation(t *testing.T) {
	repo := NewCreditRepository(setupCreditTestDB(t))
	ctx := context.Background()

	if _, err := repo.Credit(ctx, 1, 10, models.TransactionPurchase, ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	// User 2 has no credits; user 1's balance must not leak.
	if _, err := repo.Spend(ctx, 2, 1, models.TransactionReading, ""); !errors.Is(err, repository.ErrInsufficientCredits) {
		t.Errorf("Spend for user 2 error = %v, want ErrInsufficientCredits", err)
	}
}

func TestCreditRepository_GetTotalSpent(t *testing.T) {
	ctx := context.Background()

	// Each case seeds the ledger via raw inserts so debit/credit mixes that
	// the public API would reject (e.g. negative running balance) can still
	// be expressed.
	tests := []struct {
		name    string
		entries []struct {
			delta  int64
			txType string
		}
		want int64
	}{
		{
			name: "refund excluded despite positive delta",
			entries: []struct {
				delta  int64
				txType string
			}{{-2, "reading"}, {-3, "reading"}, {-5, "refund"}, {10, "purchase"}},
			want: 5,
		},
		{
			name: "negative adjustment counted, positive ignored",
			entries: []struct {
				delta  int64
				txType string
			}{{-4, "adjustment"}, {6, "adjustment"}, {-1, "reading"}},
			want: 5,
		},
		{
			name: "credits only",
			entries: []struct {
				delta  int64
				txType string
			}{{5, "purchase"}, {3, "bonus"}},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupCreditTestDB(t)
			repo := NewCreditRepository(db)

			for i, entry := range tt.entries {
				_, err := db.Exec(
					`INSERT INTO credit_transactions (id, user_id, delta, type) VALUES (?, 7, ?, ?)`,
					// Stable synthetic IDs keep the inserts independent of uuid
					string(rune('a'+i)), entry.delta, entry.txType,
				)
				if err != nil {
					t.Fatalf("seed insert failed: %v", err)
				}
			}

			got, err := repo.GetTotalSpent(ctx, 7)
			if err != nil {
				t.Fatalf("GetTotalSpent failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("GetTotalSpent = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCreditRepository_GetTotalPurchased(t *testing.T) {
	repo := NewCreditRepository(setupCreditTestDB(t))
	ctx := context.Background()

	for _, grant := range []struct {
		amount int64
		txType models.TransactionType
	}{
		{5, models.TransactionPurchase},
		{3, models.TransactionBonus},
		{2, models.TransactionWelcome},
		{1, models.TransactionRefund},
	} {
		if _, err := repo.Credit(ctx, 1, grant.amount, grant.txType, ""); err != nil {
			t.Fatalf("Credit failed: %v", err)
		}
	}
	if _, err := repo.Spend(ctx, 1, 4, models.TransactionReading, ""); err != nil {
		t.Fatalf("Spend failed: %v", err)
	}

	got, err := repo.GetTotalPurchased(ctx, 1)
	if err != nil {
		t.Fatalf("GetTotalPurchased failed: %v", err)
	}
	if got != 11 {
		t.Errorf("GetTotalPurchased = %d, want 11 (debits excluded)", got)
	}
}

func TestCreditRepository_GetHistory(t *testing.T) {
	repo := NewCreditRepository(setupCreditTestDB(t))
	ctx := context.Background()

	if _, err := repo.Credit(ctx, 1, 10, models.TransactionPurchase, "first"); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if _, err := repo.Spend(ctx, 1, 1, models.TransactionReading, "second"); err != nil {
		t.Fatalf("Spend failed: %v", err)
	}
	if _, err := repo.Spend(ctx, 1, 2, models.TransactionReading, "third"); err != nil {
		t.Fatalf("Spend failed: %v", err)
	}

	history, err := repo.GetHistory(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d entries, want 3", len(history))
	}

	// Most-recent-first
	if history[0].Description != "third" || history[2].Description != "first" {
		t.Errorf("history not most-recent-first: %q, %q, %q",
			history[0].Description, history[1].Description, history[2].Description)
	}

	// Pagination
	page, err := repo.GetHistory(ctx, 1, 1, 1)
	if err != nil {
		t.Fatalf("GetHistory with offset failed: %v", err)
	}
	if len(page) != 1 || page[0].Description != "second" {
		t.Errorf("paginated history = %+v, want the middle entry", page)
	}

	// Unknown user returns an empty history, not an error
	empty, err := repo.GetHistory(ctx, 99, 10, 0)
	if err != nil {
		t.Fatalf("GetHistory for unknown user failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("history for unknown user has %d entries, want 0", len(empty))
	}
}

func TestCreditRepository_ConcurrentSpendsNeverOverspend(t *testing.T) {
	repo := NewCreditRepository(setupCreditTestDB(t))
	ctx := context.Background()

	const balance = 10
	const spendAmount = 3 // 10/3 -> at most 3 can succeed

	if _, err := repo.Credit(ctx, 1, balance, models.TransactionPurchase, ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Spend(ctx, 1, spendAmount, models.TransactionReading, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, repository.ErrInsufficientCredits):
		default:
			t.Errorf("unexpected spend error: %v", err)
		}
	}

	if succeeded > balance/spendAmount {
		t.Errorf("%d spends succeeded, want at most %d", succeeded, balance/spendAmount)
	}

	final, err := repo.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if final.Credits < 0 {
		t.Errorf("balance went negative: %d", final.Credits)
	}
	if want := int64(balance - succeeded*spendAmount); final.Credits != want {
		t.Errorf("balance = %d, want %d", final.Credits, want)
	}
}

// Runs against a file database opened the way production opens it, with
// multiple pool connections, so spends from different connections really
// contend for the write lock instead of serializing inside the pool.
func TestCreditRepository_ConcurrentSpendsSerializeOnFileDB(t *testing.T) {
	db, err := database.Initialize(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(8)

	repo := NewCreditRepository(db)
	ctx := context.Background()

	const balance = 10
	const spendAmount = 3

	if _, err := repo.Credit(ctx, 1, balance, models.TransactionPurchase, ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Spend(ctx, 1, spendAmount, models.TransactionReading, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, insufficient := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, repository.ErrInsufficientCredits):
			insufficient++
		default:
			// A busy error here means contention leaked past the lock
			// acquisition at BEGIN and surfaced as a storage failure.
			t.Errorf("unexpected spend error: %v", err)
		}
	}

	if want := balance / spendAmount; succeeded != want {
		t.Errorf("%d spends succeeded, want %d", succeeded, want)
	}
	if succeeded+insufficient != attempts {
		t.Errorf("succeeded=%d insufficient=%d, want every attempt to resolve to one or the other", succeeded, insufficient)
	}

	final, err := repo.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if want := int64(balance % spendAmount); final.Credits != want {
		t.Errorf("balance = %d, want %d", final.Credits, want)
	}
}
