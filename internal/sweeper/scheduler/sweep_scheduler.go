package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/sweeper/service"
)

// SweepScheduler runs the sweep once at start and then on every interval tick.
// Runs never overlap: a tick that fires during a run is dropped by the ticker.
type SweepScheduler struct {
	runner   service.Runner
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewSweepScheduler(runner service.Runner, interval, timeout time.Duration, logger *slog.Logger) *SweepScheduler {
	return &SweepScheduler{
		runner:   runner,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start blocks until ctx is canceled
func (s *SweepScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting sweep scheduler",
		"interval", s.interval.String(),
		"timeout", s.timeout.String(),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweep scheduler stopping due to context cancellation.")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SweepScheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.runner.Run(runCtx); err != nil {
		// already forwarded to the error-log channel by the pipeline
		s.logger.Error("Sweep failed", "error", err)
	}
}
