// Package audit appends lifecycle events to the append-only audit log.
// A recorder failure is never surfaced to the caller of the operation
// being audited: it is logged on the diagnostic channel and dropped.
package audit

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/repository"
)

// Recorder accepts audit entries. Submission is synchronous so entries
// reach the sink in event order; delivery itself is best-effort.
type Recorder interface {
	Record(ctx context.Context, params model.CreateAuditEntryParams)
}

type dbRecorder struct {
	repo repository.AuditLogRepository
}

// NewRecorder creates a recorder backed by the audit log store.
func NewRecorder(repo repository.AuditLogRepository) Recorder {
	return &dbRecorder{repo: repo}
}

func (r *dbRecorder) Record(ctx context.Context, params model.CreateAuditEntryParams) {
	if err := r.repo.Insert(ctx, params); err != nil {
		log.Error().
			Err(err).
			Str("action", string(params.Action)).
			Str("result", string(params.Result)).
			Msg("audit entry dropped")
		return
	}

	log.Debug().
		Str("action", string(params.Action)).
		Str("result", string(params.Result)).
		Msg("audit entry recorded")
}

// NopRecorder discards every entry. Used where no audit sink is wired.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, params model.CreateAuditEntryParams) {}
