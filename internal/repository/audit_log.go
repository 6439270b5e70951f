package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/database"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
)

// AuditLogRepository appends immutable audit entries. There are no update
// or delete operations on purpose.
type AuditLogRepository interface {
	Insert(ctx context.Context, params model.CreateAuditEntryParams) error
}

type auditLogRepo struct {
	db database.DBTX
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sqlx.DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) Insert(ctx context.Context, params model.CreateAuditEntryParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log_entries (
			guest_session_id, attempted_code, action, result,
			ip_address, user_agent, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, params.GuestSessionID, params.AttemptedCode, params.Action, params.Result,
		params.IPAddress, params.UserAgent, params.Details)
	return err
}
