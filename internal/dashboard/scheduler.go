package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler refreshes every tracked city on a fixed interval.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

// NewScheduler registers a refresh job on ctrl. Runs never overlap: a tick
// that fires while a refresh is still running is skipped.
func NewScheduler(ctx context.Context, ctrl *Controller, interval time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %v", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create refresh scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := ctrl.Refresh(ctx); err != nil {
				logger.Debug("scheduled refresh incomplete", zap.Error(err))
			}
		}),
		gocron.WithName("refresh-forecasts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("create refresh job: %w", err)
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins the periodic refresh.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("refresh scheduler started")
}

// Stop shuts down the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
