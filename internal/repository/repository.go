// Package repository defines interfaces for data access operations.
// This package provides abstractions over the storage layer, allowing
// different backend implementations (SQLite, PostgreSQL) to be swapped
// without changing application code.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjmerc/arcana/internal/models"
)

// Common errors returned by repository operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInsufficientCredits is returned when a spend would take a user's
	// balance below zero. This is an expected business outcome, not an
	// internal failure.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConcurrentModification is returned when a concurrent modification
	// could not be serialized.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNilDatabase is returned when a nil database connection is provided.
	ErrNilDatabase = errors.New("nil database connection")
)

// CreditRepository is the transactional credit ledger. The ledger is
// append-only: entries are never updated or deleted, and the balance is
// always derived from the transaction log.
//
// The repository trusts its userID argument; verifying that the user exists
// and that the caller may act for them is the authorization layer's job.
type CreditRepository interface {
	// Spend records a debit of amount (a positive integer, stored as a
	// negative delta). The balance check and the insert form one
	// consistency boundary: two concurrent spends can never both observe a
	// sufficient balance and overspend. Returns ErrInsufficientCredits,
	// with no rows written, when the balance does not cover amount.
	Spend(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.CreditTransaction, error)

	// Credit records a positive delta (purchase, bonus, refund, welcome).
	// No balance precondition.
	Credit(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.CreditTransaction, error)

	// GetBalance derives the user's balance from the transaction log.
	// A user with no transactions has a zero balance, not an error.
	GetBalance(ctx context.Context, userID int64) (*models.CreditBalance, error)

	// GetTotalSpent sums the absolute value of negative deltas of type
	// reading or adjustment. Refunds are excluded even though their own
	// delta is positive: spending and refunding are distinct events for
	// reporting, while only the raw sum determines the balance.
	GetTotalSpent(ctx context.Context, userID int64) (int64, error)

	// GetTotalPurchased sums all positive deltas.
	GetTotalPurchased(ctx context.Context, userID int64) (int64, error)

	// GetHistory returns the user's transactions most-recent-first.
	GetHistory(ctx context.Context, userID int64, limit, offset int) ([]models.CreditTransaction, error)
}

// RateLimitEntry is a persisted rate limit record for an identifier/policy
// combination, used when limits must be shared across instances.
type RateLimitEntry struct {
	ID         int64
	Identifier string
	LimitType  string
	Count      int
	WindowEnd  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RateLimitRepository defines database-backed rate limiting. This enables
// multi-node deployments where limits are shared across instances, and
// fail-closed enforcement on security-critical paths.
type RateLimitRepository interface {
	// IncrementAndCheck atomically increments the request count for an
	// identifier/policy combination, resetting the counter when the window
	// has expired, and reports whether the request is within the limit.
	IncrementAndCheck(ctx context.Context, identifier, limitType string, limit int, windowDuration time.Duration) (allowed bool, currentCount int, err error)

	// ResetEntry clears the counter for an identifier/policy combination.
	// Useful for testing or admin override.
	ResetEntry(ctx context.Context, identifier, limitType string) error

	// CleanupExpired removes entries whose windows have expired. Called
	// periodically by a cleanup worker. Returns the number removed.
	CleanupExpired(ctx context.Context) (int64, error)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	// Insert writes one audit event. Callers treat failures as
	// best-effort: an audit write must never roll back or block the
	// decision it records.
	Insert(ctx context.Context, event *models.AuditEvent) error

	// ListRecent returns the newest events, most-recent-first.
	ListRecent(ctx context.Context, limit int) ([]models.AuditEvent, error)
}

// Repositories holds all repository implementations.
type Repositories struct {
	Credits    CreditRepository
	RateLimits RateLimitRepository
	Audit      AuditRepository
}
