package sqlite

import (
	"database/sql"

	"github.com/fjmerc/arcana/internal/repository"
)

// NewRepositories builds the full repository set backed by a SQLite database.
func NewRepositories(db *sql.DB) (*repository.Repositories, error) {
	if db == nil {
		return nil, repository.ErrNilDatabase
	}

	return &repository.Repositories{
		Credits:    NewCreditRepository(db),
		RateLimits: NewRateLimitRepository(db),
		Audit:      NewAuditRepository(db),
	}, nil
}
