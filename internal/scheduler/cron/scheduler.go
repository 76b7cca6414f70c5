package cronjob

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/doerdesk/doerdesk-backend/internal/scheduler"
)

// Scheduler runs the auto-approval sweep on a cron spec.
type Scheduler struct {
	sweeper *scheduler.Sweeper
	spec    string
	log     *zap.Logger
	cron    *cron.Cron
}

func NewScheduler(sweeper *scheduler.Sweeper, spec string, log *zap.Logger) *Scheduler {
	return &Scheduler{sweeper: sweeper, spec: spec, log: log}
}

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(s.spec, func() {
		if _, err := s.sweeper.SweepOnce(ctx); err != nil {
			s.log.Error("scheduled sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.log.Info("auto-approval scheduler started", zap.String("spec", s.spec))
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
