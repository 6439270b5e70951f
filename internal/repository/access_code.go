package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/database"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
)

// AccessCodeRepository handles access code data operations
type AccessCodeRepository interface {
	Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error)
	FindByID(ctx context.Context, id string) (*model.AccessCode, error)
	FindByCode(ctx context.Context, code string) (*model.AccessCode, error)
	// CodeExists reports whether a code string was ever issued, active or not.
	CodeExists(ctx context.Context, code string) (bool, error)
	// ConsumeUse atomically increments current_uses, conditioned on the code
	// still being redeemable at write time. Returns nil when the condition
	// did not hold (exhausted, expired, or deactivated).
	ConsumeUse(ctx context.Context, id string, now time.Time) (*model.AccessCode, error)
	Deactivate(ctx context.Context, id string) (*model.AccessCode, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]model.AccessCode, error)
	// ExpireDue flips is_active off for every active code past its deadline
	// and returns the affected ids.
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccessCodeRepository
}

type accessCodeRepo struct {
	db database.DBTX
}

// NewAccessCodeRepository creates a new access code repository
func NewAccessCodeRepository(db *sqlx.DB) AccessCodeRepository {
	return &accessCodeRepo{db: db}
}

func (r *accessCodeRepo) WithTx(tx *sqlx.Tx) AccessCodeRepository {
	return &accessCodeRepo{db: tx}
}

func (r *accessCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `
		INSERT INTO access_codes (id, code, level, description, expires_at, max_uses, custom_quotas, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, params.ID, params.Code, params.Level, params.Description, params.ExpiresAt,
		params.MaxUses, params.CustomQuotas, params.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *accessCodeRepo) FindByID(ctx context.Context, id string) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `
		SELECT * FROM access_codes WHERE id = $1
	`, id)
	return HandleNotFound(&code, err)
}

func (r *accessCodeRepo) FindByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	var ac model.AccessCode
	err := r.db.GetContext(ctx, &ac, `
		SELECT * FROM access_codes WHERE code = $1
	`, code)
	return HandleNotFound(&ac, err)
}

func (r *accessCodeRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM access_codes WHERE code = $1)
	`, code)
	return exists, err
}

// ConsumeUse is the write that closes the check-then-increment race: the
// use-count guard is evaluated inside the UPDATE, so currentUses can never
// exceed maxUses no matter how many callers race the same code.
func (r *accessCodeRepo) ConsumeUse(ctx context.Context, id string, now time.Time) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `
		UPDATE access_codes SET
			current_uses = current_uses + 1,
			last_used_at = $2
		WHERE id = $1
		AND is_active = TRUE
		AND expires_at > $2
		AND current_uses < max_uses
		RETURNING *
	`, id, now)
	return HandleNotFound(&code, err)
}

func (r *accessCodeRepo) Deactivate(ctx context.Context, id string) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `
		UPDATE access_codes SET
			is_active = FALSE
		WHERE id = $1 AND is_active = TRUE
		RETURNING *
	`, id)
	return HandleNotFound(&code, err)
}

func (r *accessCodeRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM access_codes WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *accessCodeRepo) List(ctx context.Context, limit, offset int) ([]model.AccessCode, error) {
	codes := []model.AccessCode{}
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM access_codes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return codes, err
}

func (r *accessCodeRepo) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE access_codes SET
			is_active = FALSE
		WHERE expires_at < $1 AND is_active = TRUE
		RETURNING id
	`, now)
	return ids, err
}
