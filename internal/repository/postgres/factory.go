package postgres

import (
	"context"
	"fmt"

	"github.com/fjmerc/arcana/internal/repository"
)

// schema creates the tables this backend needs. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS credit_transactions (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL,
    user_id BIGINT NOT NULL,
    delta BIGINT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('reading','purchase','bonus','adjustment','refund','welcome')),
    description TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_credit_tx_user ON credit_transactions(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS rate_limits (
    id BIGSERIAL PRIMARY KEY,
    identifier TEXT NOT NULL,
    limit_type TEXT NOT NULL,
    request_count INTEGER NOT NULL DEFAULT 0,
    window_end TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(identifier, limit_type)
);

CREATE TABLE IF NOT EXISTS audit_log (
    id BIGSERIAL PRIMARY KEY,
    event TEXT NOT NULL,
    level TEXT NOT NULL DEFAULT 'info',
    user_id BIGINT,
    resource TEXT,
    resource_id TEXT,
    action TEXT,
    success BOOLEAN NOT NULL DEFAULT TRUE,
    error_message TEXT,
    metadata JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// NewRepositories connects to PostgreSQL, ensures the schema exists, and
// builds the full repository set.
func NewRepositories(ctx context.Context, connString string, maxConns int32) (*repository.Repositories, *Pool, error) {
	pool, err := NewPool(ctx, connString, maxConns)
	if err != nil {
		return nil, nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create schema: %w", err)
	}

	repos := &repository.Repositories{
		Credits:    NewCreditRepository(pool),
		RateLimits: NewRateLimitRepository(pool),
		Audit:      NewAuditRepository(pool),
	}

	return repos, pool, nil
}
