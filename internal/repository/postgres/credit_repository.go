package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fjmerc/arcana/internal/models"
	"github.com/fjmerc/arcana/internal/repository"
)

// CreditRepository implements repository.CreditRepository for PostgreSQL.
//
// Spend runs at serializable isolation; serialization failures are retried
// by re-running the whole balance-check-then-insert cycle, which is safe
// because a retry re-observes the balance. This is distinct from retrying a
// failed debit blindly, which the ledger never does.
type CreditRepository struct {
	pool *Pool
}

// NewCreditRepository creates a new PostgreSQL credit repository.
func NewCreditRepository(pool *Pool) *CreditRepository {
	return &CreditRepository{pool: pool}
}

// spendTxRetries bounds serialization-failure retries on the spend path.
const spendTxRetries = 3

// Spend records a debit after verifying the balance covers it.
func (r *CreditRepository) Spend(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", repository.ErrInvalidInput, amount)
	}
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", repository.ErrInvalidInput, txType)
	}

	var record *models.CreditTransaction
	var lastErr error

	for attempt := 0; attempt < spendTxRetries; attempt++ {
		record, lastErr = r.spendOnce(ctx, userID, amount, txType, description)
		if lastErr == nil || !isRetryableTxError(lastErr) {
			return record, lastErr
		}
	}

	return nil, fmt.Errorf("%w: %v", repository.ErrConcurrentModification, lastErr)
}

func (r *CreditRepository) spendOnce(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.CreditTransaction, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin spend transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	query := `SELECT COALESCE(SUM(delta), 0) FROM credit_transactions WHERE user_id = $1`
	if err := tx.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}

	if balance < amount {
		return nil, repository.ErrInsufficientCredits
	}

	record := &models.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Delta:       -amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	insert := `INSERT INTO credit_transactions (id, user_id, delta, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, insert, record.ID, record.UserID, record.Delta, string(record.Type), record.Description, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert debit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit spend: %w", err)
	}

	return record, nil
}

// Credit records a positive delta. No balance precondition applies.
func (r *CreditRepository) Credit(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", repository.ErrInvalidInput, amount)
	}
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", repository.ErrInvalidInput, txType)
	}

	record := &models.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Delta:       amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	insert := `INSERT INTO credit_transactions (id, user_id, delta, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.pool.Exec(ctx, insert, record.ID, record.UserID, record.Delta, string(record.Type), record.Description, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert credit: %w", err)
	}

	return record, nil
}

// GetBalance derives the balance from the transaction log.
func (r *CreditRepository) GetBalance(ctx context.Context, userID int64) (*models.CreditBalance, error) {
	var credits int64
	query := `SELECT COALESCE(SUM(delta), 0) FROM credit_transactions WHERE user_id = $1`
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&credits); err != nil {
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}

	return &models.CreditBalance{UserID: userID, Credits: credits}, nil
}

// GetTotalSpent sums |delta| over debits of type reading or adjustment.
func (r *CreditRepository) GetTotalSpent(ctx context.Context, userID int64) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(-delta), 0) FROM credit_transactions
		WHERE user_id = $1 AND delta < 0 AND type IN ('reading', 'adjustment')`
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to compute total spent: %w", err)
	}

	return total, nil
}

// GetTotalPurchased sums all positive deltas.
func (r *CreditRepository) GetTotalPurchased(ctx context.Context, userID int64) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(delta), 0) FROM credit_transactions WHERE user_id = $1 AND delta > 0`
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to compute total purchased: %w", err)
	}

	return total, nil
}

// GetHistory returns the user's transactions most-recent-first.
func (r *CreditRepository) GetHistory(ctx context.Context, userID int64, limit, offset int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", repository.ErrInvalidInput)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset cannot be negative", repository.ErrInvalidInput)
	}

	query := `SELECT id, user_id, delta, type, description, created_at
		FROM credit_transactions WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction history: %w", err)
	}
	defer rows.Close()

	var transactions []models.CreditTransaction
	for rows.Next() {
		var record models.CreditTransaction
		var txType string
		var description *string

		if err := rows.Scan(&record.ID, &record.UserID, &record.Delta, &txType, &description, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		record.Type = models.TransactionType(txType)
		if description != nil {
			record.Description = *description
		}

		transactions = append(transactions, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// Ensure CreditRepository implements repository.CreditRepository.
var _ repository.CreditRepository = (*CreditRepository)(nil)
