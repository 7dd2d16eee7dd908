// Package scheduler runs named periodic jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Every runs fn immediately and then on every tick of interval until
// ctx is cancelled. A failing fn is logged and retried on the next
// tick; it never stops the loop. Every blocks until ctx is done.
func Every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("scheduling job", "job", name, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := fn(ctx); err != nil {
		logger.Error("job failed", "job", name, "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("job stopped", "job", name)
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Error("job failed", "job", name, "error", err)
			}
		}
	}
}
