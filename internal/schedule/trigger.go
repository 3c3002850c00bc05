// Package schedule runs periodic background syncs on a cron schedule.
//
// Example usage:
//
//	trigger, err := schedule.NewTrigger("@every 30s", boardService, logger)
//	if err != nil {
//	    return err
//	}
//	trigger.Start(ctx) // Returns immediately, runs until ctx is cancelled
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSpec is returned when the schedule cannot be parsed.
var ErrInvalidSpec = errors.New("invalid schedule spec")

// Runnable is implemented by anything the trigger can run.
type Runnable interface {
	Run() error
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func() error

func (f RunnableFunc) Run() error { return f() }

// Trigger executes a Runnable according to a cron schedule.
type Trigger struct {
	spec     string
	schedule cron.Schedule
	runnable Runnable
	logger   *slog.Logger
}

// NewTrigger parses spec, which is either a standard 5-field cron
// expression or a descriptor such as "@hourly" or "@every 30s".
func NewTrigger(spec string, runnable Runnable, logger *slog.Logger) (*Trigger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	spec = strings.TrimSpace(spec)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidSpec, err)
	}

	return &Trigger{
		spec:     spec,
		schedule: sched,
		runnable: runnable,
		logger:   logger,
	}, nil
}

// Spec returns the schedule the trigger was built from.
func (t *Trigger) Spec() string { return t.spec }

// Start launches a goroutine that runs on schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (t *Trigger) Start(ctx context.Context) {
	go t.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (t *Trigger) NextRun() time.Time {
	return t.schedule.Next(time.Now())
}

func (t *Trigger) loop(ctx context.Context) {
	for {
		nextRun := t.schedule.Next(time.Now())
		wait := time.Until(nextRun)

		t.logger.Debug("waiting for next scheduled sync",
			"next_run", nextRun,
			"wait_duration", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.logger.Debug("sync trigger shutting down")
			return
		case <-timer.C:
			t.execute()
		}
	}
}

func (t *Trigger) execute() {
	start := time.Now()
	if err := t.runnable.Run(); err != nil {
		t.logger.Warn("scheduled sync failed", "error", err, "duration", time.Since(start))
		return
	}
	t.logger.Debug("scheduled sync completed", "duration", time.Since(start))
}
