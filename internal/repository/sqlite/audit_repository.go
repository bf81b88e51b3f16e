package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjmerc/arcana/internal/models"
	"github.com/fjmerc/arcana/internal/repository"
)

// AuditRepository implements repository.AuditRepository for SQLite.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new SQLite audit repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert writes one audit event. Metadata is stored as JSON.
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

	var metadata sql.NullString
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = sql.NullString{String: string(encoded), Valid: true}
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `INSERT INTO audit_log (event, level, user_id, resource, resource_id, action, success, error_message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.Event, level, event.UserID, event.Resource, event.ResourceID, event.Action,
		event.Success, event.ErrorMessage, metadata, createdAt.Format(time.RFC3339Nano),
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
		FROM audit_log ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		var resource, resourceID, action, errorMessage, metadata sql.NullString
		var createdAt string

		err := rows.Scan(&event.ID, &event.Event, &event.Level, &event.UserID,
			&resource, &resourceID, &action, &event.Success, &errorMessage, &metadata, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		event.Resource = resource.String
		event.ResourceID = resourceID.String
		event.Action = action.String
		event.ErrorMessage = errorMessage.String

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}

		event.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
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
