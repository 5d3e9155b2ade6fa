package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one refresh tick. It receives the context passed to Run.
type Job func(ctx context.Context)

// Scheduler runs a Job immediately and then on a fixed interval until the
// context is cancelled. Ticks never overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	job       Job
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(interval time.Duration, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		interval:  interval,
		job:       job,
		logger:    logger,
	}
}

// Run schedules the job and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		if ctx.Err() != nil {
			return
		}
		s.logger.Debug("scheduler: running refresh")
		s.job(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: started", "interval", s.interval)

	<-ctx.Done()
	s.scheduler.Stop()
	s.logger.Info("scheduler: stopped")
	return nil
}
