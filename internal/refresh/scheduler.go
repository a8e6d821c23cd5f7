package refresh

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"
)

const jobName = "toc-refresh"

// Start schedules a tick every Interval, beginning immediately. The job runs
// in singleton mode, so a slow tick delays the next one rather than
// overlapping it. The schedule lasts until Stop or until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	r.schedMu.Lock()
	defer r.schedMu.Unlock()

	if r.scheduler != nil {
		return fmt.Errorf("refresher already started")
	}

	s, err := gocron.NewScheduler(gocron.WithLogger(r.logger))
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	job, err := s.NewJob(
		gocron.DurationJob(r.opts.Interval),
		gocron.NewTask(r.runScheduled),
		gocron.WithName(jobName),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create refresh job: %w", err)
	}

	r.scheduler = s
	r.job = job
	r.logger.Info("Starting refresher", "interval", r.opts.Interval.String(), "job_id", job.ID().String())
	s.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running tick to finish.
func (r *Refresher) Stop() error {
	r.schedMu.Lock()
	defer r.schedMu.Unlock()

	if r.scheduler == nil {
		return nil
	}
	r.logger.Info("Stopping refresher")
	err := r.scheduler.Shutdown()
	r.scheduler = nil
	r.job = nil
	return err
}

// RunNow asks the scheduler for an immediate tick. It is a no-op when the
// refresher is not started; a request made while a tick is running is
// dropped, since that tick or the next scheduled one picks up the change.
func (r *Refresher) RunNow(trigger Trigger) error {
	r.schedMu.Lock()
	job := r.job
	r.schedMu.Unlock()

	if job == nil {
		return nil
	}
	r.pending.Store(trigger)
	if err := job.RunNow(); err != nil {
		return fmt.Errorf("failed to request refresh: %w", err)
	}
	return nil
}

func (r *Refresher) runScheduled(ctx context.Context) {
	trigger := TriggerTimer
	if t, ok := r.pending.Swap(TriggerTimer).(Trigger); ok && t != "" {
		trigger = t
	}
	// tick recovers panics itself, so gocron never sees one.
	r.tick(ctx, trigger)
}
