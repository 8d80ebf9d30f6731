package workers

import (
	"context"
	"log/slog"

	application "maestro/contexts/orchestration/processor-service/application"
)

// TickKeeper drives a processor forward by calling Tick on a schedule. It
// stands in for the external crank callers a deployment would have.
type TickKeeper struct {
	Service application.Service
	Logger  *slog.Logger
}

func (j TickKeeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	if err := j.Service.Tick(ctx); err != nil {
		logger.Error("tick failed",
			"event", "processor_tick_failed",
			"module", "contexts/orchestration/processor-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	return nil
}
