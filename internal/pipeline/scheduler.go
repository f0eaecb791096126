package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/communitylab/rating-engine/internal/clock"
	"go.uber.org/zap"
)

// SchedulerConfig wires the run trigger loop.
type SchedulerConfig struct {
	Orchestrator *Orchestrator
	Clock        clock.Clock
	Logger       *zap.Logger

	// Virtual selects the compressed-time trigger: poll the clock and
	// run once per virtual calendar day at RunAtHour. When false the
	// scheduler runs on a plain real-time interval.
	Virtual      bool
	Interval     time.Duration
	RunAtHour    int
	PollInterval time.Duration
}

// RunScheduler triggers pipeline runs until the context is cancelled.
// It never returns an error; failed runs are logged and the next
// trigger retries.
func RunScheduler(ctx context.Context, cfg SchedulerConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Virtual {
		runVirtualSchedule(ctx, cfg, logger)
		return
	}
	runIntervalSchedule(ctx, cfg, logger)
}

func runIntervalSchedule(ctx context.Context, cfg SchedulerConfig, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		execute(ctx, cfg.Orchestrator, logger)
	}
}

// runVirtualSchedule polls the virtual clock and fires once per virtual
// calendar day once the trigger hour is reached. The watermark comes
// from the orchestrator's last successful run, so a failed run is
// retried on the next poll instead of skipping the day.
func runVirtualSchedule(ctx context.Context, cfg SchedulerConfig, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		now := cfg.Clock.Now()
		if now.UTC().Hour() < cfg.RunAtHour {
			continue
		}
		day := dateOf(now)
		if last, ok := cfg.Orchestrator.LastProcessedDate(); ok && !day.After(last) {
			continue
		}
		execute(ctx, cfg.Orchestrator, logger)
	}
}

func execute(ctx context.Context, orchestrator *Orchestrator, logger *zap.Logger) {
	if _, err := orchestrator.Execute(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			logger.Debug("skipping trigger, run still in progress")
			return
		}
		logger.Error("scheduled run failed", zap.Error(err))
	}
}
