package scheduler

import (
	"time"

	"posti_delivery_tracker/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RolloverScheduler re-derives every coordinator's snapshot at the local
// midnight rollover. When the calendar day changes, a previously-future
// delivery date may now be in the past; the derived next/last/days-until
// fields must follow without waiting for the next fetch.
type RolloverScheduler struct {
	cronEngine       *cron.Cron
	registry         *app.CoordinatorRegistry
	logger           *logrus.Entry
	cronSpecRollover string
}

func NewRolloverScheduler(
	registry *app.CoordinatorRegistry,
	log *logrus.Entry,
	cronSpecRollover string, // e.g., "0 0 * * *" (local midnight)
) *RolloverScheduler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RolloverScheduler{
		cronEngine:       cron.New(cron.WithLocation(time.Local)), // Dates roll over in server-local time
		registry:         registry,
		logger:           log.WithField("component", "rollover_scheduler"),
		cronSpecRollover: cronSpecRollover,
	}
}

func (s *RolloverScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpecRollover, func() {
		s.logger.Debug("Midnight rollover, recomputing all snapshots")
		s.registry.RecomputeAll(time.Now())
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Info("Rollover scheduler started")
	return nil
}

func (s *RolloverScheduler) Stop() {
	ctx := s.cronEngine.Stop() // Stops scheduling new runs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Rollover scheduler stopped")
}
