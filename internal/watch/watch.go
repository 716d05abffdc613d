// Package watch reruns a scrape on a schedule.
package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Schedule says when a watch runs. Exactly one of Every and Cron is set.
type Schedule struct {
	Every time.Duration
	// Jitter randomises each Every interval up to this much longer
	Jitter time.Duration
	Cron   string
	// Location is the time zone of Cron, local when nil
	Location *time.Location
}

func (s Schedule) definition() (gocron.JobDefinition, error) {
	switch {
	case s.Cron != "" && s.Every > 0:
		return nil, errors.New("set either an interval or a cron expression, not both")
	case s.Cron != "":
		return gocron.CronJob(s.Cron, false), nil
	case s.Every <= 0:
		return nil, errors.New("interval must be positive")
	case s.Jitter > 0:
		return gocron.DurationRandomJob(s.Every, s.Every+s.Jitter), nil
	default:
		return gocron.DurationJob(s.Every), nil
	}
}

// Task is one scheduled run. Its error is logged and the schedule goes on.
type Task func(ctx context.Context) error

// Run starts task immediately and then on schedule until ctx is done. A run
// that overruns its slot delays the next one instead of overlapping it.
func Run(ctx context.Context, sched Schedule, timeout time.Duration, task Task) error {
	def, err := sched.definition()
	if err != nil {
		return err
	}

	loc := sched.Location
	if loc == nil {
		loc = time.Local
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	runs := 0
	_, err = scheduler.NewJob(
		def,
		gocron.NewTask(func() {
			runs++
			runCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			log.Info().Int("run", runs).Msg("Scheduled scrape started")
			if err := task(runCtx); err != nil {
				log.Error().Err(err).Int("run", runs).Msg("Scheduled scrape failed")
				return
			}
			log.Info().Int("run", runs).Dur("took", time.Since(start)).Msg("Scheduled scrape finished")
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule scrape: %w", err)
	}

	scheduler.Start()
	<-ctx.Done()

	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}
