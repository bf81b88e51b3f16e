package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjmerc/arcana/internal/repository"
)

// RateLimitRepository implements repository.RateLimitRepository for
// PostgreSQL using a single atomic upsert, so the check works unchanged
// across many application instances.
type RateLimitRepository struct {
	pool *Pool
}

// NewRateLimitRepository creates a new PostgreSQL rate limit repository.
func NewRateLimitRepository(pool *Pool) *RateLimitRepository {
	return &RateLimitRepository{pool: pool}
}

// IncrementAndCheck atomically increments the request count for an
// identifier/policy combination, resetting expired windows in the same
// statement.
func (r *RateLimitRepository) IncrementAndCheck(ctx context.Context, identifier, limitType string, limit int, windowDuration time.Duration) (bool, int, error) {
	if identifier == "" || limitType == "" {
		return false, 0, fmt.Errorf("identifier and limit type cannot be empty")
	}
	if limit <= 0 {
		return false, 0, fmt.Errorf("limit must be positive")
	}
	if windowDuration <= 0 {
		return false, 0, fmt.Errorf("window duration must be positive")
	}

	now := time.Now().UTC()
	windowEnd := now.Add(windowDuration)

	// ON CONFLICT handles both the first request and the running window;
	// the CASE resets counters whose windows have expired.
	query := `
		INSERT INTO rate_limits (identifier, limit_type, request_count, window_end, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $4, $4)
		ON CONFLICT (identifier, limit_type) DO UPDATE SET
			request_count = CASE
				WHEN rate_limits.window_end < $4 THEN 1
				ELSE rate_limits.request_count + 1
			END,
			window_end = CASE
				WHEN rate_limits.window_end < $4 THEN $3
				ELSE rate_limits.window_end
			END,
			updated_at = $4
		RETURNING request_count`

	var count int
	if err := r.pool.QueryRow(ctx, query, identifier, limitType, windowEnd, now).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	return count <= limit, count, nil
}

// ResetEntry resets the rate limit for an identifier/policy combination.
func (r *RateLimitRepository) ResetEntry(ctx context.Context, identifier, limitType string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM rate_limits WHERE identifier = $1 AND limit_type = $2`, identifier, limitType)
	if err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

// CleanupExpired removes rate limit entries whose windows expired over an
// hour ago. Returns the number of entries removed.
func (r *RateLimitRepository) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rate_limits WHERE window_end < NOW() - INTERVAL '1 hour'`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired rate limits: %w", err)
	}

	removed := tag.RowsAffected()
	if removed > 0 {
		slog.Debug("cleaned up expired rate limit entries", "count", removed)
	}

	return removed, nil
}

// Ensure RateLimitRepository implements repository.RateLimitRepository.
var _ repository.RateLimitRepository = (*RateLimitRepository)(nil)
