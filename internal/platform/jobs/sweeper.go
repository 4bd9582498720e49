package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
)

// NoShowSweeper periodically marks overdue appointments as no-shows.
type NoShowSweeper struct {
	appts *appointment.Service
	grace time.Duration
	cron  *cron.Cron
}

func NewNoShowSweeper(appts *appointment.Service, grace time.Duration) *NoShowSweeper {
	return &NoShowSweeper{appts: appts, grace: grace}
}

// Start schedules the sweep on the given cron spec and begins running it.
func (s *NoShowSweeper) Start(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("schedule", spec).Dur("grace", s.grace).Msg("no-show sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *NoShowSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *NoShowSweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	swept, err := s.RunNow(ctx)
	if err != nil {
		log.Error().Err(err).Msg("no-show sweep failed")
		return
	}
	if swept > 0 {
		log.Info().Int("swept", swept).Msg("no-show sweep completed")
	}
}

// RunNow executes a single sweep immediately. The serve loop runs it on a
// schedule; the noshow-sweep command runs it once and exits.
func (s *NoShowSweeper) RunNow(ctx context.Context) (int, error) {
	return s.appts.SweepNoShows(ctx, s.grace)
}
