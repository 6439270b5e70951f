package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/audit"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/database"
	apperrors "github.com/DesmondD0ss/AccessManager-sub000/internal/errors"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/repository"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/util"
)

// Usage thresholds, ascending. Each fires at most once per session.
var warningThresholds = []int{80, 90, 95}

// TxRunner runs a function inside a store transaction. *database.DB
// satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

var _ TxRunner = (*database.DB)(nil)

// TokenIssuer mints and checks session bearer tokens.
type TokenIssuer interface {
	Issue(sessionID string, ttl time.Duration) (string, error)
	Verify(tokenString string) (string, error)
}

// SessionService drives the guest session state machine: creation against
// an access code, consumption updates, threshold alerting, and terminal
// transitions. Active is the sole initial state; Expired, Terminated, and
// QuotaExceeded are absorbing.
type SessionService struct {
	db          TxRunner
	codeRepo    repository.AccessCodeRepository
	sessionRepo repository.GuestSessionRepository
	recorder    audit.Recorder
	tokens      TokenIssuer
}

// NewSessionService creates a new session service
func NewSessionService(
	db TxRunner,
	codeRepo repository.AccessCodeRepository,
	sessionRepo repository.GuestSessionRepository,
	recorder audit.Recorder,
	tokens TokenIssuer,
) *SessionService {
	return &SessionService{
		db:          db,
		codeRepo:    codeRepo,
		sessionRepo: sessionRepo,
		recorder:    recorder,
		tokens:      tokens,
	}
}

// CreateSessionInput contains the guest's redemption request
type CreateSessionInput struct {
	Code      string
	IPAddress string
	UserAgent string
	Location  string
}

// CreateSessionResult is returned once per session; the plaintext token is
// never recoverable afterwards.
type CreateSessionResult struct {
	Session *model.GuestSession
	Code    *model.AccessCode
	Token   string
}

// CreateSession redeems an access code. The code-use increment and the
// session insert commit as one transaction; under concurrent redemption of
// a maxUses=1 code exactly one caller succeeds and the rest get the
// uniform invalid-code error.
func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*CreateSessionResult, error) {
	now := time.Now()

	code, err := s.findRedeemableCode(ctx, input, now)
	if err != nil {
		return nil, err
	}

	quota := ResolveQuota(code.Level, code.CustomQuotas.Ptr())

	// Session deadline: whichever comes first, the code expiry or the
	// time quota running out.
	expiresAt := now.Add(time.Duration(quota.TimeQuotaMinutes) * time.Minute)
	if code.ExpiresAt.Before(expiresAt) {
		expiresAt = code.ExpiresAt
	}

	var (
		session      *model.GuestSession
		consumedCode *model.AccessCode
		tokenStr     string
	)
	txErr := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		txCodes := s.codeRepo.WithTx(tx)
		txSessions := s.sessionRepo.WithTx(tx)

		consumed, err := txCodes.ConsumeUse(ctx, code.ID, now)
		if err != nil {
			return apperrors.Database(err)
		}
		if consumed == nil {
			// Lost the race: another redemption took the last use, or the
			// code expired or was deactivated since the eligibility check.
			return apperrors.CodeInvalid()
		}
		consumedCode = consumed

		created, err := txSessions.Create(ctx, model.CreateGuestSessionParams{
			ID:               uuid.NewString(),
			AccessCodeID:     code.ID,
			IPAddress:        input.IPAddress,
			UserAgent:        input.UserAgent,
			Location:         input.Location,
			DataQuotaMB:      quota.DataQuotaMB,
			TimeQuotaMinutes: quota.TimeQuotaMinutes,
			ExpiresAt:        expiresAt,
		})
		if err != nil {
			return apperrors.Database(err)
		}

		// The token embeds the session id, so it is minted only once the
		// row exists, and its hash is persisted before the token leaves
		// this transaction.
		tokenStr, err = s.tokens.Issue(created.ID, time.Until(expiresAt))
		if err != nil {
			return apperrors.Internal("failed to issue session token").WithCause(err)
		}
		if err := txSessions.SetTokenHash(ctx, created.ID, util.HashToken(tokenStr)); err != nil {
			return apperrors.Database(err)
		}
		created.SessionTokenHash = util.HashToken(tokenStr)

		session = created
		return nil
	})
	if txErr != nil {
		s.auditSessionCreateFailure(ctx, input, txErr)
		return nil, txErr
	}

	s.recorder.Record(ctx, model.CreateAuditEntryParams{
		GuestSessionID: &session.ID,
		AttemptedCode:  &input.Code,
		Action:         model.ActionSessionCreate,
		Result:         model.ResultSuccess,
		IPAddress:      input.IPAddress,
		UserAgent:      input.UserAgent,
		Details: model.Details{
			"dataQuotaMB":      session.DataQuotaMB,
			"timeQuotaMinutes": session.TimeQuotaMinutes,
			"expiresAt":        session.ExpiresAt.Format(time.RFC3339),
		},
	})

	log.Info().
		Str("sessionId", session.ID).
		Str("code", util.MaskCode(input.Code)).
		Str("ip", input.IPAddress).
		Time("expiresAt", session.ExpiresAt).
		Msg("guest session created")

	return &CreateSessionResult{Session: session, Code: consumedCode, Token: tokenStr}, nil
}

// findRedeemableCode re-validates eligibility before the transaction. The
// check is advisory; the transaction's conditional increment is what
// actually enforces it.
func (s *SessionService) findRedeemableCode(ctx context.Context, input CreateSessionInput, now time.Time) (*model.AccessCode, error) {
	if !model.CodePattern.MatchString(input.Code) {
		err := apperrors.CodeInvalid()
		s.auditSessionCreateFailure(ctx, input, err)
		return nil, err
	}

	code, err := s.codeRepo.FindByCode(ctx, input.Code)
	if err != nil {
		dbErr := apperrors.Database(err)
		s.auditSessionCreateFailure(ctx, input, dbErr)
		return nil, dbErr
	}
	if code == nil || !code.Redeemable(now) {
		err := apperrors.CodeInvalid()
		s.auditSessionCreateFailure(ctx, input, err)
		return nil, err
	}
	return code, nil
}

func (s *SessionService) auditSessionCreateFailure(ctx context.Context, input CreateSessionInput, cause error) {
	result := model.ResultFailed
	if apperrors.GetCode(cause) == apperrors.ErrCodeDatabase {
		result = model.ResultError
	}
	s.recorder.Record(ctx, model.CreateAuditEntryParams{
		AttemptedCode: &input.Code,
		Action:        model.ActionSessionCreate,
		Result:        result,
		IPAddress:     input.IPAddress,
		UserAgent:     input.UserAgent,
		Details:       model.Details{"reason": string(apperrors.GetCode(cause))},
	})
}

// UpdateConsumption applies a usage report to an active session. Data is
// applied as an increment because independent reporters may submit partial
// deltas concurrently; elapsed time is recomputed from the wall clock and
// never decreases. The threshold engine runs after every applied update.
func (s *SessionService) UpdateConsumption(ctx context.Context, sessionID string, dataDeltaMB *float64, timeConsumedMinutes *int) (*model.GuestSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if session.Status != model.SessionActive {
		return nil, apperrors.SessionInactive()
	}

	var delta float64
	if dataDeltaMB != nil {
		if *dataDeltaMB < 0 {
			return nil, apperrors.InvalidInput("dataDeltaMB", "must not be negative")
		}
		delta = *dataDeltaMB
	}

	now := time.Now()
	elapsed := int(now.Sub(session.StartedAt).Minutes())
	if timeConsumedMinutes != nil && *timeConsumedMinutes > elapsed {
		elapsed = *timeConsumedMinutes
	}

	updated, err := s.sessionRepo.AddConsumption(ctx, sessionID, delta, elapsed, now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		// Raced a terminal transition between the read and the write.
		return nil, apperrors.SessionInactive()
	}

	return s.checkThresholds(ctx, updated)
}

// checkThresholds evaluates usage after a mutation. Crossing 100% of
// either dimension terminates the session and takes priority over firing
// any same-evaluation warning; otherwise each threshold fires its one-shot
// warning when first crossed.
func (s *SessionService) checkThresholds(ctx context.Context, session *model.GuestSession) (*model.GuestSession, error) {
	maxPct := session.MaxPercent()

	if maxPct >= 100 {
		return s.TerminateSession(ctx, session.ID, model.ReasonQuotaExceeded)
	}

	var fired []int
	warnings := session.WarningsSent
	for _, threshold := range warningThresholds {
		if maxPct >= float64(threshold) && !warnings.Has(threshold) {
			warnings = warnings.Add(threshold)
			fired = append(fired, threshold)
		}
	}
	if len(fired) == 0 {
		return session, nil
	}

	// CAS on the observed set: of two updaters crossing the same threshold
	// together, only the one whose write flips the bit gets to audit it.
	flipped, err := s.sessionRepo.SetWarnings(ctx, session.ID, session.WarningsSent, warnings)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !flipped {
		return session, nil
	}
	session.WarningsSent = warnings

	for _, threshold := range fired {
		s.recorder.Record(ctx, model.CreateAuditEntryParams{
			GuestSessionID: &session.ID,
			Action:         model.QuotaWarningAction(threshold),
			Result:         model.ResultSuccess,
			IPAddress:      session.IPAddress,
			Details: model.Details{
				"threshold":   threshold,
				"dataPercent": session.DataPercent(),
				"timePercent": session.TimePercent(),
			},
		})
		log.Warn().
			Str("sessionId", session.ID).
			Int("threshold", threshold).
			Float64("maxPercent", maxPct).
			Msg("quota threshold crossed")
	}

	return session, nil
}

// TerminateSession drives a session into the terminal state mapped from
// reason. Terminating an already-terminal session is a no-op: status,
// terminatedAt, and the audit trail are left untouched.
func (s *SessionService) TerminateSession(ctx context.Context, sessionID string, reason model.TerminateReason) (*model.GuestSession, error) {
	target, ok := reason.TerminalStatus()
	if !ok {
		return nil, apperrors.InvalidInput("reason", "unknown termination reason")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if session.Status.IsTerminal() {
		return session, nil
	}

	now := time.Now()
	terminated, err := s.sessionRepo.Terminate(ctx, sessionID, target, now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if terminated == nil {
		// First writer to flip the status wins; we lost, so observe the
		// winner's terminal state and change nothing.
		current, err := s.sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if current == nil {
			return nil, apperrors.NotFound("Session")
		}
		return current, nil
	}

	s.recorder.Record(ctx, model.CreateAuditEntryParams{
		GuestSessionID: &terminated.ID,
		Action:         model.ActionSessionTerminate,
		Result:         model.ResultSuccess,
		IPAddress:      terminated.IPAddress,
		Details: model.Details{
			"reason":              string(reason),
			"status":              string(terminated.Status),
			"dataConsumedMB":      terminated.DataConsumedMB,
			"timeConsumedMinutes": terminated.TimeConsumedMinutes,
			"durationMinutes":     int(now.Sub(terminated.StartedAt).Minutes()),
		},
	})

	log.Info().
		Str("sessionId", terminated.ID).
		Str("reason", string(reason)).
		Str("status", string(terminated.Status)).
		Msg("guest session terminated")

	return terminated, nil
}

// GetSessionInfo returns the session with computed usage percentages.
func (s *SessionService) GetSessionInfo(ctx context.Context, sessionID string) (*model.SessionView, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	return model.NewSessionView(session), nil
}

// AuthorizeToken checks a bearer token against a session: the token must
// verify, name the session, and match the hash stored on the row.
func (s *SessionService) AuthorizeToken(ctx context.Context, sessionID, tokenString string) error {
	subject, err := s.tokens.Verify(tokenString)
	if err != nil || subject != sessionID {
		return apperrors.InvalidToken("token does not grant access to this session")
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return apperrors.Database(err)
	}
	if session == nil {
		return apperrors.NotFound("Session")
	}
	if !util.ConstantTimeEqual(session.SessionTokenHash, util.HashToken(tokenString)) {
		return apperrors.InvalidToken("token does not grant access to this session")
	}
	return nil
}
