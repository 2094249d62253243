package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vpnda/cardless-sync/pkg/clock"
)

// ScheduledSyncer is the part of Syncer the scheduler drives.
type ScheduledSyncer interface {
	SynchronizeScheduled(ctx context.Context) (*SyncReport, bool, error)
}

var _ ScheduledSyncer = (*Syncer)(nil)

// Scheduler starts a pass at every interval boundary of the local day.
type Scheduler struct {
	syncer        ScheduledSyncer
	clock         clock.Clock
	interval      time.Duration
	syncOnStartup bool
	after         func(time.Duration) <-chan time.Time
}

type SchedulerOption func(*Scheduler)

func WithSchedulerClock(cl clock.Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = cl
	}
}

// WithTimer replaces time.After, so tests can fire the schedule on demand.
func WithTimer(after func(time.Duration) <-chan time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.after = after
	}
}

func NewScheduler(syncer ScheduledSyncer, interval time.Duration, syncOnStartup bool, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	s := &Scheduler{
		syncer:        syncer,
		clock:         clock.New(),
		interval:      interval,
		syncOnStartup: syncOnStartup,
		after:         time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if s.syncOnStartup {
		s.tick(ctx)
	}

	for {
		now := s.clock.Now()
		next := NextIntervalBoundary(now, s.interval)
		log.Info().Time("next_sync", next).Msg("waiting for next scheduled sync")

		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-s.after(next.Sub(now)):
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, ran, err := s.syncer.SynchronizeScheduled(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled sync failed")
		return
	}
	if ran && report != nil {
		log.Info().Str("run_id", report.RunId).Int("accounts", len(report.Accounts)).Msg("scheduled sync done")
	}
}
