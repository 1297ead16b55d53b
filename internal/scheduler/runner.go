// Package scheduler triggers the reminder sweeps on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/calendar-slots/internal/application"
	"github.com/example/calendar-slots/internal/logging"
)

// Sweeper runs the reminder sweeps for a given current instant.
type Sweeper interface {
	NotifyDayEvents(ctx context.Context, now time.Time) (int, error)
	NotifyTimeEvents(ctx context.Context, now time.Time) (int, error)
}

// Config holds the cron expressions of both sweeps, in standard five-field
// syntax, evaluated in Location.
type Config struct {
	DaySchedule  string
	TimeSchedule string
	Location     *time.Location
	// JobTimeout bounds a single sweep run. Zero means no bound.
	JobTimeout time.Duration
}

// DefaultConfig fires the day sweep at 08:00 and the time sweep on every
// half hour.
func DefaultConfig() Config {
	return Config{
		DaySchedule:  "0 8 * * *",
		TimeSchedule: "0,30 * * * *",
		Location:     time.UTC,
		JobTimeout:   5 * time.Minute,
	}
}

// Runner owns a cron instance with one entry per sweep. Overlapping runs of
// the same sweep are skipped and panics inside a sweep are recovered.
type Runner struct {
	cron    *cron.Cron
	sweeper Sweeper
	now     func() time.Time
	timeout time.Duration
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner validates both schedules and registers the sweeps.
func NewRunner(sweeper Sweeper, config Config, now func() time.Time, logger *slog.Logger) (*Runner, error) {
	if sweeper == nil {
		return nil, errors.New("scheduler: sweeper is required")
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	location := config.Location
	if location == nil {
		location = time.UTC
	}
	logger = logger.With("component", "scheduler")

	cronLogger := NewCronLogger(logger)
	r := &Runner{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sweeper: sweeper,
		now:     now,
		timeout: config.JobTimeout,
		logger:  logger,
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	if _, err := r.cron.AddFunc(config.DaySchedule, func() { r.RunDaySweep(r.ctx) }); err != nil {
		return nil, fmt.Errorf("scheduler: day schedule %q: %w", config.DaySchedule, err)
	}
	if _, err := r.cron.AddFunc(config.TimeSchedule, func() { r.RunTimeSweep(r.ctx) }); err != nil {
		return nil, fmt.Errorf("scheduler: time schedule %q: %w", config.TimeSchedule, err)
	}
	return r, nil
}

// Start begins firing the schedules in the background.
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info("scheduler started", "entries", len(r.cron.Entries()))
}

// Stop prevents new runs and waits for running sweeps until ctx ends, after
// which the sweeps' context is cancelled.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	defer r.cancel()

	select {
	case <-done.Done():
		r.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: waiting for running sweeps: %w", ctx.Err())
	}
}

// RunDaySweep runs the day-event sweep once against the injected clock.
func (r *Runner) RunDaySweep(ctx context.Context) {
	r.run(ctx, application.JobDayReminders, r.sweeper.NotifyDayEvents)
}

// RunTimeSweep runs the time-event sweep once against the injected clock.
func (r *Runner) RunTimeSweep(ctx context.Context) {
	r.run(ctx, application.JobTimeReminders, r.sweeper.NotifyTimeEvents)
}

func (r *Runner) run(ctx context.Context, job string, sweep func(context.Context, time.Time) (int, error)) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	logger := r.logger.With("job", job)
	ctx = logging.ContextWithLogger(ctx, logger)

	// Sweep errors are logged by the reminder service itself.
	if _, err := sweep(ctx, r.now()); err != nil {
		logger.DebugContext(ctx, "sweep finished with error", "error", err)
	}
}
