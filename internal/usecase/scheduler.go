package usecase

import (
	"context"
	"time"

	"NewsPress/internal/ports"
)

// Scheduler wires the interval driver with the run use case.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner *Runner) *Scheduler {
	return &Scheduler{driver: driver, runner: runner}
}

// Start registers the runner with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_ = s.runner.Execute(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
