// Package scheduler runs a task on a fixed interval for watch mode.
// Production deployments normally use cron instead.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Task func(ctx context.Context) error

// Every runs task immediately, then on every tick, until ctx is done.
// Task errors are logged, not fatal; the next tick tries again.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil {
			zap.L().Error("scheduled task failed",
				zap.String("task", name),
				zap.Error(err),
			)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
