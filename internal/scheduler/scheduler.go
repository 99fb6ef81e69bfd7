// Package scheduler runs pipeline jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name implements Job.
func (f JobFunc) Name() string { return f.JobName }

// Run implements Job.
func (f JobFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// Scheduler wraps a cron runner. A run that is still in progress when its
// next tick arrives causes that tick to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates an idle scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	return &Scheduler{cron: c, logger: logger}
}

// Add registers job on a standard five field cron spec or a descriptor such as @every 1h.
// Jobs run with ctx so cancelling it interrupts in-flight work.
func (s *Scheduler) Add(ctx context.Context, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		logger := s.logger.With(zap.String("job", job.Name()))
		logger.Info("job started")
		if err := job.Run(ctx); err != nil {
			logger.Error("job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Info("job finished", zap.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, job.Name(), err)
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}
