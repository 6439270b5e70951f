package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ExpirySweeper batch-expires overdue codes and sessions.
// *service.Sweeper satisfies it.
type ExpirySweeper interface {
	SweepExpiredCodes(ctx context.Context) (int64, error)
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

type CleanupJob struct {
	sweeper  ExpirySweeper
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(sweeper ExpirySweeper, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Codes first so sessions orphaned by a just-expired code are already
	// transitioned before the session sweep looks at deadlines.
	j.runCleanup(ctx, "expired access codes", j.sweeper.SweepExpiredCodes)
	j.runCleanup(ctx, "expired sessions", j.sweeper.SweepExpiredSessions)
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("swept %s", name)
	}
}
