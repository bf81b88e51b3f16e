package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjmerc/arcana/internal/repository"
)

// RateLimitRepository implements repository.RateLimitRepository for SQLite.
type RateLimitRepository struct {
	db *sql.DB
}

// NewRateLimitRepository creates a new SQLite rate limit repository.
func NewRateLimitRepository(db *sql.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Maximum request count to prevent integer overflow.
// Any legitimate rate limit should be far below this value.
const maxRequestCount = 1000000000 // 1 billion

// Maximum allowed rate limit value to prevent configuration errors.
const maxRateLimit = 10000

// validateRateLimitKey checks the identifier/limitType pair at the boundary.
// Identifiers are opaque (hashed addresses or user keys), so only structural
// checks apply.
func validateRateLimitKey(identifier, limitType string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(identifier) > 128 {
		return fmt.Errorf("identifier too long")
	}
	if limitType == "" {
		return fmt.Errorf("limit type cannot be empty")
	}
	if len(limitType) > 32 {
		return fmt.Errorf("limit type too long")
	}
	return nil
}

// IncrementAndCheck atomically increments the request count for an
// identifier/policy combination and reports whether the request is allowed.
//
// Uses a transaction for the read-then-write and handles window expiration.
func (r *RateLimitRepository) IncrementAndCheck(ctx context.Context, identifier, limitType string, limit int, windowDuration time.Duration) (bool, int, error) {
	if err := validateRateLimitKey(identifier, limitType); err != nil {
		return false, 0, err
	}
	if limit <= 0 {
		return false, 0, fmt.Errorf("limit must be positive")
	}
	if limit > maxRateLimit {
		return false, 0, fmt.Errorf("limit exceeds maximum allowed value of %d", maxRateLimit)
	}
	if windowDuration <= 0 {
		return false, 0, fmt.Errorf("window duration must be positive")
	}

	now := time.Now()
	windowEnd := now.Add(windowDuration)
	nowRFC3339 := now.Format(time.RFC3339)
	windowEndRFC3339 := windowEnd.Format(time.RFC3339)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingCount int
	var existingWindowEnd string
	var exists bool

	query := `SELECT request_count, window_end FROM rate_limits WHERE identifier = ? AND limit_type = ?`
	err = tx.QueryRowContext(ctx, query, identifier, limitType).Scan(&existingCount, &existingWindowEnd)
	if err == sql.ErrNoRows {
		exists = false
	} else if err != nil {
		return false, 0, fmt.Errorf("failed to query rate limit: %w", err)
	} else {
		exists = true
	}

	var newCount int
	if exists {
		windowEndTime, err := parseTimestamp(existingWindowEnd)
		if err != nil {
			return false, 0, fmt.Errorf("failed to parse window_end: %w", err)
		}

		if now.After(windowEndTime) {
			// Window expired - reset counter
			newCount = 1
			updateQuery := `UPDATE rate_limits SET request_count = 1, window_end = ?, updated_at = ? WHERE identifier = ? AND limit_type = ?`
			_, err = tx.ExecContext(ctx, updateQuery, windowEndRFC3339, nowRFC3339, identifier, limitType)
			if err != nil {
				return false, 0, fmt.Errorf("failed to reset rate limit: %w", err)
			}
		} else {
			// Window still active - increment counter with overflow protection
			if existingCount >= maxRequestCount {
				return false, existingCount, nil
			}
			newCount = existingCount + 1
			updateQuery := `UPDATE rate_limits SET request_count = ?, updated_at = ? WHERE identifier = ? AND limit_type = ?`
			_, err = tx.ExecContext(ctx, updateQuery, newCount, nowRFC3339, identifier, limitType)
			if err != nil {
				return false, 0, fmt.Errorf("failed to increment rate limit: %w", err)
			}
		}
	} else {
		newCount = 1
		insertQuery := `INSERT INTO rate_limits (identifier, limit_type, request_count, window_end, created_at, updated_at) VALUES (?, ?, 1, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, insertQuery, identifier, limitType, windowEndRFC3339, nowRFC3339, nowRFC3339)
		if err != nil {
			return false, 0, fmt.Errorf("failed to create rate limit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	allowed := newCount <= limit
	return allowed, newCount, nil
}

// ResetEntry resets the rate limit for an identifier/policy combination.
func (r *RateLimitRepository) ResetEntry(ctx context.Context, identifier, limitType string) error {
	query := `DELETE FROM rate_limits WHERE identifier = ? AND limit_type = ?`

	_, err := r.db.ExecContext(ctx, query, identifier, limitType)
	if err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}

	return nil
}

// CleanupExpired removes rate limit entries that have expired.
// Returns the number of entries removed.
func (r *RateLimitRepository) CleanupExpired(ctx context.Context) (int64, error) {
	// Delete entries where the window expired over an hour ago
	query := `DELETE FROM rate_limits WHERE datetime(window_end) < datetime('now', '-1 hour')`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		slog.Debug("cleaned up expired rate limit entries", "count", rowsAffected)
	}

	return rowsAffected, nil
}

// Ensure RateLimitRepository implements repository.RateLimitRepository.
var _ repository.RateLimitRepository = (*RateLimitRepository)(nil)
