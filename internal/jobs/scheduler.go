// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// TokenPurger deletes refresh tokens that expired or were revoked before
// cutoff.  *repository.TokenRepo satisfies it.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler owns the cron instance and its jobs.
type Scheduler struct {
	cron   *cron.Cron
	tokens TokenPurger
	spec   string
	now    func() time.Time
}

// NewScheduler validates spec and returns a stopped scheduler.
func NewScheduler(tokens TokenPurger, spec string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("token cleanup spec %q: %w", spec, err)
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		tokens: tokens,
		spec:   spec,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.PurgeTokens(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	log.WithField("spec", s.spec).Info("scheduler started")
	return nil
}

// PurgeTokens runs one cleanup pass.
func (s *Scheduler) PurgeTokens(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := s.tokens.PurgeExpired(ctx, s.now())
	if err != nil {
		log.WithError(err).Error("[CRON] refresh token cleanup failed")
		return
	}
	log.WithField("deleted", n).Debug("[CRON] refresh tokens purged")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}
