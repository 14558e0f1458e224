// Package worker runs periodic background refreshes.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/tartampluch/go-moodgrid/internal/config"
)

// Job is a named unit of periodic work.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// Run executes every job immediately and then once per interval until ctx
// is cancelled. A job still running when its next tick comes is not started
// twice.
func Run(ctx context.Context, interval time.Duration, jobs ...Job) error {
	log := slog.With(
		config.LogKeyComponent, config.CompWorker,
		config.LogKeyInterval, interval.String(),
	)

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrScheduler, err)
	}

	for _, job := range jobs {
		_, err := s.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				if ctx.Err() != nil {
					return
				}
				log.Debug(config.MsgJobRun, config.LogKeyOperation, job.Name)
				job.Run(ctx)
			}),
			gocron.WithName(job.Name),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return fmt.Errorf("%s: %w", config.ErrSchedulerJob, err)
		}
	}

	s.Start()
	log.Info(config.MsgWorkerStart, config.LogKeyCount, len(jobs))

	<-ctx.Done()
	log.Info(config.MsgWorkerStop)
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrScheduler, err)
	}
	return nil
}
