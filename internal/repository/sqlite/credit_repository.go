package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fjmerc/arcana/internal/models"
	"github.com/fjmerc/arcana/internal/repository"
)

// CreditRepository implements repository.CreditRepository for SQLite.
//
// The ledger table is append-only. Spend wraps the balance check and the
// insert in one serializable transaction so concurrent spends for the same
// user cannot overspend; operations for different users remain independent.
type CreditRepository struct {
	db *sql.DB
}

// NewCreditRepository creates a new SQLite credit repository.
func NewCreditRepository(db *sql.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// validateAmount checks a spend/credit amount at the boundary.
func validateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", repository.ErrInvalidInput, amount)
	}
	return nil
}

// Spend records a debit after verifying the balance covers it, inside a
// single transaction. A rejected spend writes zero rows.
func (r *CreditRepository) Spend(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.CreditTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", repository.ErrInvalidInput, txType)
	}

	tx, err := beginSerializableTx(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("failed to begin spend transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	query := `SELECT COALESCE(SUM(delta), 0) FROM credit_transactions WHERE user_id = ?`
	if err := tx.QueryRowContext(ctx, query, userID).Scan(&balance); err != nil {
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

	insert := `INSERT INTO credit_transactions (id, user_id, delta, type, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insert,
		record.ID, record.UserID, record.Delta, string(record.Type), record.Description,
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert debit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit spend: %w", err)
	}

	return record, nil
}

// Credit records a positive delta. No balance precondition applies.
func (r *CreditRepository) Credit(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.CreditTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
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

	insert := `INSERT INTO credit_transactions (id, user_id, delta, type, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, insert,
		record.ID, record.UserID, record.Delta, string(record.Type), record.Description,
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert credit: %w", err)
	}

	return record, nil
}

// GetBalance derives the balance from the transaction log.
func (r *CreditRepository) GetBalance(ctx context.Context, userID int64) (*models.CreditBalance, error) {
	var credits int64
	query := `SELECT COALESCE(SUM(delta), 0) FROM credit_transactions WHERE user_id = ?`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&credits); err != nil {
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}

	return &models.CreditBalance{UserID: userID, Credits: credits}, nil
}

// GetTotalSpent sums |delta| over debits of type reading or adjustment.
func (r *CreditRepository) GetTotalSpent(ctx context.Context, userID int64) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(-delta), 0) FROM credit_transactions
		WHERE user_id = ? AND delta < 0 AND type IN ('reading', 'adjustment')`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to compute total spent: %w", err)
	}

	return total, nil
}

// GetTotalPurchased sums all positive deltas.
func (r *CreditRepository) GetTotalPurchased(ctx context.Context, userID int64) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(delta), 0) FROM credit_transactions WHERE user_id = ? AND delta > 0`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
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
		FROM credit_transactions WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction history: %w", err)
	}
	defer rows.Close()

	var transactions []models.CreditTransaction
	for rows.Next() {
		var record models.CreditTransaction
		var txType, createdAt string
		var description sql.NullString

		err := rows.Scan(&record.ID, &record.UserID, &record.Delta, &txType, &description, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		record.Type = models.TransactionType(txType)
		record.Description = description.String
		record.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
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
