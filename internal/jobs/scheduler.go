package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	purger   Purger
	schedule string
	timeout  time.Duration
	log      zerolog.Logger
}

// NewScheduler takes a six-field cron spec (seconds first).
func NewScheduler(purger Purger, schedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		purger:   purger,
		schedule: schedule,
		timeout:  30 * time.Second,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.log.Info().Msg("purge job disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.purgeExpired); err != nil {
		return fmt.Errorf("schedule purge job: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running job until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired credentials failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("cleared", n).Msg("purged expired credentials")
	}
}
