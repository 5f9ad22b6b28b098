package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Scheduler periodically purges expired entries from the upstream response cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     weather.Store
	interval  time.Duration
	log       *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(store weather.Store, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		store:     store,
		interval:  interval,
		log:       logger.GetLogger().Named("scheduler"),
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.store == nil {
		s.log.Info("no response cache configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.Sweep)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Sweep purges expired cache entries once.
func (s *Scheduler) Sweep() {
	if removed := s.store.Purge(time.Now()); removed > 0 {
		s.log.Debugw("purged expired forecast responses", "removed", removed)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
