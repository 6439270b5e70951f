package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/database"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
)

// GuestSessionRepository handles guest session data operations. Every
// mutation is conditioned on status = 'active' in the WHERE clause, which
// is what makes terminal transitions one-way and sweep/update races safe.
type GuestSessionRepository interface {
	Create(ctx context.Context, params model.CreateGuestSessionParams) (*model.GuestSession, error)
	FindByID(ctx context.Context, id string) (*model.GuestSession, error)
	SetTokenHash(ctx context.Context, id string, tokenHash string) error
	// AddConsumption applies a data delta as an increment and raises the
	// consumed time to timeConsumedMinutes if higher than the stored value.
	// Returns nil when the session is no longer active.
	AddConsumption(ctx context.Context, id string, dataDeltaMB float64, timeConsumedMinutes int, now time.Time) (*model.GuestSession, error)
	// SetWarnings persists the fired-warning set as a compare-and-set on
	// the previously observed set, guarded on the session still being
	// active. Returns false when either guard did not hold.
	SetWarnings(ctx context.Context, id string, observed, updated model.WarningSet) (bool, error)
	// Terminate is a compare-and-set on status = 'active'. Returns nil when
	// another writer already moved the session to a terminal state.
	Terminate(ctx context.Context, id string, status model.SessionStatus, now time.Time) (*model.GuestSession, error)
	// ExpireDue transitions every active session past its deadline to
	// expired and returns the transitioned rows.
	ExpireDue(ctx context.Context, now time.Time) ([]model.GuestSession, error)
	// ExpireByCodeIDs expires the active sessions of the given codes.
	ExpireByCodeIDs(ctx context.Context, codeIDs []string, now time.Time) ([]model.GuestSession, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) GuestSessionRepository
}

type guestSessionRepo struct {
	db database.DBTX
}

// NewGuestSessionRepository creates a new guest session repository
func NewGuestSessionRepository(db *sqlx.DB) GuestSessionRepository {
	return &guestSessionRepo{db: db}
}

func (r *guestSessionRepo) WithTx(tx *sqlx.Tx) GuestSessionRepository {
	return &guestSessionRepo{db: tx}
}

func (r *guestSessionRepo) Create(ctx context.Context, params model.CreateGuestSessionParams) (*model.GuestSession, error) {
	var session model.GuestSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO guest_sessions (
			id, access_code_id, ip_address, user_agent, location,
			data_quota_mb, time_quota_minutes, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, params.ID, params.AccessCodeID, params.IPAddress, params.UserAgent,
		params.Location, params.DataQuotaMB, params.TimeQuotaMinutes, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *guestSessionRepo) FindByID(ctx context.Context, id string) (*model.GuestSession, error) {
	var session model.GuestSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM guest_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *guestSessionRepo) SetTokenHash(ctx context.Context, id string, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE guest_sessions SET
			session_token_hash = $2
		WHERE id = $1
	`, id, tokenHash)
	return err
}

func (r *guestSessionRepo) AddConsumption(ctx context.Context, id string, dataDeltaMB float64, timeConsumedMinutes int, now time.Time) (*model.GuestSession, error) {
	var session model.GuestSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE guest_sessions SET
			data_consumed_mb = data_consumed_mb + $2,
			time_consumed_minutes = GREATEST(time_consumed_minutes, $3),
			last_activity = $4
		WHERE id = $1 AND status = 'active'
		RETURNING *
	`, id, dataDeltaMB, timeConsumedMinutes, now)
	return HandleNotFound(&session, err)
}

// The warnings_sent comparison relies on WarningSet marshaling in sorted
// order, so equal sets always serialize identically.
func (r *guestSessionRepo) SetWarnings(ctx context.Context, id string, observed, updated model.WarningSet) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE guest_sessions SET
			warnings_sent = $3
		WHERE id = $1 AND status = 'active' AND warnings_sent = $2
	`, id, observed, updated)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *guestSessionRepo) Terminate(ctx context.Context, id string, status model.SessionStatus, now time.Time) (*model.GuestSession, error) {
	var session model.GuestSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE guest_sessions SET
			status = $2,
			terminated_at = $3,
			last_activity = $3
		WHERE id = $1 AND status = 'active'
		RETURNING *
	`, id, status, now)
	return HandleNotFound(&session, err)
}

func (r *guestSessionRepo) ExpireDue(ctx context.Context, now time.Time) ([]model.GuestSession, error) {
	sessions := []model.GuestSession{}
	err := r.db.SelectContext(ctx, &sessions, `
		UPDATE guest_sessions SET
			status = 'expired',
			terminated_at = $1
		WHERE status = 'active' AND expires_at < $1
		RETURNING *
	`, now)
	return sessions, err
}

func (r *guestSessionRepo) ExpireByCodeIDs(ctx context.Context, codeIDs []string, now time.Time) ([]model.GuestSession, error) {
	sessions := []model.GuestSession{}
	if len(codeIDs) == 0 {
		return sessions, nil
	}
	err := r.db.SelectContext(ctx, &sessions, `
		UPDATE guest_sessions SET
			status = 'expired',
			terminated_at = $1
		WHERE status = 'active' AND access_code_id = ANY($2)
		RETURNING *
	`, now, pq.Array(codeIDs))
	return sessions, err
}
