package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/audit"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/repository"
)

// Sweeper batch-expires codes and sessions past their deadline. Both
// sweeps are safe to run concurrently with live session traffic: every
// transition they perform is conditioned on the row still being active at
// write time, so a racing update can at worst be followed by an expiry,
// never a resurrection or a double termination.
type Sweeper struct {
	db          TxRunner
	codeRepo    repository.AccessCodeRepository
	sessionRepo repository.GuestSessionRepository
	recorder    audit.Recorder
}

// NewSweeper creates a new sweeper
func NewSweeper(
	db TxRunner,
	codeRepo repository.AccessCodeRepository,
	sessionRepo repository.GuestSessionRepository,
	recorder audit.Recorder,
) *Sweeper {
	return &Sweeper{
		db:          db,
		codeRepo:    codeRepo,
		sessionRepo: sessionRepo,
		recorder:    recorder,
	}
}

// SweepExpiredCodes deactivates every active code past its expiry and
// expires the active sessions created from those codes, as one
// transaction. Returns the number of codes deactivated.
func (s *Sweeper) SweepExpiredCodes(ctx context.Context) (int64, error) {
	now := time.Now()

	var (
		codeIDs []string
		expired []model.GuestSession
	)
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		codeIDs, err = s.codeRepo.WithTx(tx).ExpireDue(ctx, now)
		if err != nil {
			return err
		}
		expired, err = s.sessionRepo.WithTx(tx).ExpireByCodeIDs(ctx, codeIDs, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.auditExpired(ctx, expired, "code_expired")

	if len(codeIDs) > 0 {
		log.Info().
			Int("codes", len(codeIDs)).
			Int("sessions", len(expired)).
			Msg("swept expired access codes")
	}
	return int64(len(codeIDs)), nil
}

// SweepExpiredSessions expires every active session whose own deadline has
// passed. Returns the number of sessions transitioned.
func (s *Sweeper) SweepExpiredSessions(ctx context.Context) (int64, error) {
	now := time.Now()

	expired, err := s.sessionRepo.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}

	s.auditExpired(ctx, expired, "deadline_passed")

	if len(expired) > 0 {
		log.Info().Int("sessions", len(expired)).Msg("swept expired sessions")
	}
	return int64(len(expired)), nil
}

func (s *Sweeper) auditExpired(ctx context.Context, sessions []model.GuestSession, cause string) {
	for i := range sessions {
		session := &sessions[i]
		s.recorder.Record(ctx, model.CreateAuditEntryParams{
			GuestSessionID: &session.ID,
			Action:         model.ActionSessionExpire,
			Result:         model.ResultSuccess,
			IPAddress:      session.IPAddress,
			Details: model.Details{
				"cause":               cause,
				"dataConsumedMB":      session.DataConsumedMB,
				"timeConsumedMinutes": session.TimeConsumedMinutes,
			},
		})
	}
}
