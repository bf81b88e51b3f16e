// Package credits is the ledger service: it wraps the credit repository with
// audit emission and metrics, and translates the external signals the ledger
// consumes (purchase completed, signup) into transactions.
package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjmerc/arcana/internal/audit"
	"github.com/fjmerc/arcana/internal/metrics"
	"github.com/fjmerc/arcana/internal/models"
	"github.com/fjmerc/arcana/internal/repository"
)

// Service gates metered operations on the credit ledger. Every mutation
// emits an audit record; audit emission is best-effort and never affects the
// ledger outcome.
type Service struct {
	repo           repository.CreditRepository
	sink           audit.Sink
	welcomeCredits int64
}

// NewService creates a ledger service. welcomeCredits is the grant applied
// on signup.
func NewService(repo repository.CreditRepository, sink audit.Sink, welcomeCredits int64) *Service {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Service{repo: repo, sink: sink, welcomeCredits: welcomeCredits}
}

// Balance returns the user's derived balance.
func (s *Service) Balance(ctx context.Context, userID int64) (*models.CreditBalance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Summary returns spending and purchasing totals.
func (s *Service) Summary(ctx context.Context, userID int64) (*models.CreditSummary, error) {
	spent, err := s.repo.GetTotalSpent(ctx, userID)
	if err != nil {
		return nil, err
	}

	purchased, err := s.repo.GetTotalPurchased(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.CreditSummary{UserID: userID, TotalSpent: spent, TotalPurchased: purchased}, nil
}

// History returns the user's transactions most-recent-first.
func (s *Service) History(ctx context.Context, userID int64, limit, offset int) ([]models.CreditTransaction, error) {
	return s.repo.GetHistory(ctx, userID, limit, offset)
}

// SpendForReading debits the cost of one reading. An insufficient balance is
// an expected outcome: it is audited as a failure and returned as
// repository.ErrInsufficientCredits, and is never retried here.
func (s *Service) SpendForReading(ctx context.Context, userID, amount int64, description string) (*models.CreditTransaction, error) {
	record, err := s.repo.Spend(ctx, userID, amount, models.TransactionReading, description)
	if err != nil {
		level := models.AuditLevelError
		if errors.Is(err, repository.ErrInsufficientCredits) {
			level = models.AuditLevelWarn
			metrics.SpendRejectionsTotal.Inc()
		}
		s.sink.Record(ctx, models.AuditEvent{
			Event:        "credits.spend",
			Level:        level,
			UserID:       userID,
			Resource:     "credit_transaction",
			Action:       "debit",
			Success:      false,
			ErrorMessage: err.Error(),
			Metadata:     map[string]any{"amount": amount, "type": string(models.TransactionReading)},
		})
		return nil, err
	}

	metrics.CreditsSpentTotal.Add(float64(amount))
	s.auditMutation(ctx, record, "debit")

	return record, nil
}

// RecordPurchase consumes the payment provider's "purchase completed" event.
func (s *Service) RecordPurchase(ctx context.Context, event models.PurchaseCompletedEvent) (*models.CreditTransaction, error) {
	if event.Credits <= 0 {
		return nil, fmt.Errorf("%w: purchase credits must be positive, got %d", repository.ErrInvalidInput, event.Credits)
	}

	description := fmt.Sprintf("Purchase of package %s", event.PackageID)
	record, err := s.credit(ctx, event.UserID, event.Credits, models.TransactionPurchase, description)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GrantWelcome consumes the signup event by granting the welcome credits.
func (s *Service) GrantWelcome(ctx context.Context, userID int64) (*models.CreditTransaction, error) {
	if s.welcomeCredits <= 0 {
		return nil, nil
	}
	return s.credit(ctx, userID, s.welcomeCredits, models.TransactionWelcome, "Welcome credits")
}

// GrantBonus records a promotional grant.
func (s *Service) GrantBonus(ctx context.Context, userID, amount int64, description string) (*models.CreditTransaction, error) {
	return s.credit(ctx, userID, amount, models.TransactionBonus, description)
}

// Refund records a positive delta reversing a prior charge. The original
// debit remains in the ledger: spending and refunding are distinct events.
func (s *Service) Refund(ctx context.Context, userID, amount int64, description string) (*models.CreditTransaction, error) {
	return s.credit(ctx, userID, amount, models.TransactionRefund, description)
}

// Adjust records a manual correction. Negative deltas go through the
// balance-checked spend path so an adjustment can never push a balance below
// zero.
func (s *Service) Adjust(ctx context.Context, userID, delta int64, description string) (*models.CreditTransaction, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment delta cannot be zero", repository.ErrInvalidInput)
	}

	if delta < 0 {
		record, err := s.repo.Spend(ctx, userID, -delta, models.TransactionAdjustment, description)
		if err != nil {
			s.auditFailure(ctx, userID, "debit", models.TransactionAdjustment, err)
			return nil, err
		}
		s.auditMutation(ctx, record, "debit")
		return record, nil
	}

	return s.credit(ctx, userID, delta, models.TransactionAdjustment, description)
}

// credit is the shared positive-delta path.
func (s *Service) credit(ctx context.Context, userID, amount int64, txType models.TransactionType, description string) (*models.CreditTransaction, error) {
	record, err := s.repo.Credit(ctx, userID, amount, txType, description)
	if err != nil {
		s.auditFailure(ctx, userID, "credit", txType, err)
		return nil, err
	}

	metrics.CreditsGrantedTotal.WithLabelValues(string(txType)).Add(float64(amount))
	s.auditMutation(ctx, record, "credit")

	return record, nil
}

func (s *Service) auditMutation(ctx context.Context, record *models.CreditTransaction, action string) {
	s.sink.Record(ctx, models.AuditEvent{
		Event:      "credits." + action,
		Level:      models.AuditLevelInfo,
		UserID:     record.UserID,
		Resource:   "credit_transaction",
		ResourceID: record.ID,
		Action:     action,
		Success:    true,
		Metadata:   map[string]any{"delta": record.Delta, "type": string(record.Type)},
	})
}

func (s *Service) auditFailure(ctx context.Context, userID int64, action string, txType models.TransactionType, err error) {
	s.sink.Record(ctx, models.AuditEvent{
		Event:        "credits." + action,
		Level:        models.AuditLevelError,
		UserID:       userID,
		Resource:     "credit_transaction",
		Action:       action,
		Success:      false,
		ErrorMessage: err.Error(),
		Metadata:     map[string]any{"type": string(txType)},
	})
}
