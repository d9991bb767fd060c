// Package scheduler wires the periodic quota jobs to a cron runner. The jobs
// themselves live in the quota service and are idempotent; this package only
// owns the trigger cadence and job-level logging.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/hajeen-app/go-care-backend/internal/services"
)

// Scheduler runs the daily quota maintenance jobs.
type Scheduler struct {
	Quota *services.QuotaService

	// ExpiryScanSpec and CycleResetSpec are cron expressions; both default
	// to a daily run. The reset job fires every day and gates on day 1
	// internally, so a missed day-1 run is caught only by manual invocation
	// rather than a late automatic one.
	ExpiryScanSpec string
	CycleResetSpec string

	// JobTimeout bounds each job run.
	JobTimeout time.Duration

	cron *cron.Cron
}

// Start registers the jobs and starts the cron runner. The returned stop
// function waits for any in-flight job to finish.
func (s *Scheduler) Start() (stop func(context.Context), err error) {
	if s.ExpiryScanSpec == "" {
		s.ExpiryScanSpec = "0 8 * * *"
	}
	if s.CycleResetSpec == "" {
		s.CycleResetSpec = "0 0 * * *"
	}
	if s.JobTimeout <= 0 {
		s.JobTimeout = 5 * time.Minute
	}

	c := cron.New()

	if _, err := c.AddFunc(s.ExpiryScanSpec, s.runExpiryScan); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(s.CycleResetSpec, s.runCycleReset); err != nil {
		return nil, err
	}

	c.Start()
	s.cron = c
	log.Info().
		Str("expiry_scan", s.ExpiryScanSpec).
		Str("cycle_reset", s.CycleResetSpec).
		Msg("quota scheduler started")

	return func(ctx context.Context) {
		done := c.Stop().Done()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}, nil
}

func (s *Scheduler) runExpiryScan() {
	ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
	defer cancel()

	n, err := s.Quota.ScanAndNotifyExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("expiry scan failed")
		return
	}
	log.Info().Int("notified", n).Msg("expiry scan completed")
}

func (s *Scheduler) runCycleReset() {
	ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
	defer cancel()

	n, err := s.Quota.ResetCycle(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("cycle reset failed")
		return
	}
	if n > 0 {
		log.Info().Int("renewed", n).Msg("monthly quota cycle reset completed")
	}
}
