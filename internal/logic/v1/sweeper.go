package v1

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/intervention-auth/internal/core/domain"
	"github.com/duynhne/intervention-auth/middleware"
)

// sweepTimeout bounds one scheduled sweep.
const sweepTimeout = 30 * time.Second

// Sweeper deletes expired session records on a cron schedule. Every cookie
// bootstrap sweeps too; the schedule covers idle periods and bearer-only
// traffic.
type Sweeper struct {
	sessions domain.SessionRepository
	cron     *cron.Cron
}

// NewSweeper schedules sweeps. schedule accepts standard cron expressions and
// descriptors such as "@every 15m".
func NewSweeper(sessions domain.SessionRepository, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		sessions: sessions,
		cron:     cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Sweep deletes expired records once and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w: %w", ErrStoreUnavailable, err)
	}
	if n > 0 {
		middleware.SessionsSweptTotal.Add(float64(n))
	}
	return n, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled session sweep failed")
		return
	}
	log.Debug().Int64("deleted", n).Msg("Scheduled session sweep complete")
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop stops the schedule. The returned context is done once a running sweep
// has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
