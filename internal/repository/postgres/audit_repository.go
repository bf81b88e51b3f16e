package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjmerc/arcana/internal/models"
	"github.com/fjmerc/arcana/internal/repository"
)

// AuditRepository implements repository.AuditRepository for PostgreSQL.
type AuditRepository struct {
	pool *Pool
}

// NewAuditRepository creates a new PostgreSQL audit repository.
func NewAuditRepository(pool *Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert writes one audit event. Metadata is stored as JSONB.
func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil audit event", repository.ErrInvalidInput)
	}
	if event.Event == "" {
		return fmt.Errorf("%w: event name cannot be empty", repository.ErrInvalidInput)
	}

	level := event.Level
	if level == "" {
		level = models.AuditLevelInfo
	}

	var metadata []byte
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = encoded
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `INSERT INTO audit_log (event, level, user_id, resource, resource_id, action, success, error_message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		event.Event, level, event.UserID, event.Resource, event.ResourceID, event.Action,
		event.Success, event.ErrorMessage, metadata, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// ListRecent returns the newest audit events, most-recent-first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", repository.ErrInvalidInput)
	}

	query := `SELECT id, event, level, user_id, resource, resource_id, action, success, error_message, metadata, created_at
		FROM audit_log ORDER BY id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		var resource, resourceID, action, errorMessage *string
		var metadata []byte

		err := rows.Scan(&event.ID, &event.Event, &event.Level, &event.UserID,
			&resource, &resourceID, &action, &event.Success, &errorMessage, &metadata, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		if resource != nil {
			event.Resource = *resource
		}
		if resourceID != nil {
			event.ResourceID = *resourceID
		}
		if action != nil {
			event.Action = *action
		}
		if errorMessage != nil {
			event.ErrorMessage = *errorMessage
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return events, nil
}

// Ensure AuditRepository implements repository.AuditRepository.
var _ repository.AuditRepository = (*AuditRepository)(nil)
