package models

import "time"

// Audit levels.
const (
	AuditLevelInfo  = "info"
	AuditLevelWarn  = "warn"
	AuditLevelError = "error"
)

// AuditEvent records the outcome of one security-relevant or ledger-relevant
// decision.
type AuditEvent struct {
	ID           int64          `json:"id,omitempty"`
	Event        string         `json:"event"`
	Level        string         `json:"level"`
	UserID       int64          `json:"user_id,omitempty"`
	Resource     string         `json:"resource,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Action       string         `json:"action,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
}
