package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/sweeper/service"
	"github.com/robfig/cron/v3"
)

// DailyScheduler fires the daily check on a cron expression evaluated in a fixed time zone
type DailyScheduler struct {
	cron     *cron.Cron
	schedule string
	runner   service.Runner
	timeout  time.Duration
	logger   *slog.Logger
	baseCtx  context.Context
}

func NewDailyScheduler(schedule string, location *time.Location, runner service.Runner, timeout time.Duration, logger *slog.Logger) (*DailyScheduler, error) {
	s := &DailyScheduler{
		schedule: schedule,
		runner:   runner,
		timeout:  timeout,
		logger:   logger,
		baseCtx:  context.Background(),
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLocation(location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(schedule, func() { s.runJob(s.baseCtx) }); err != nil {
		return nil, fmt.Errorf("unable to schedule daily check %q: %w", schedule, err)
	}
	return s, nil
}

// Start blocks until ctx is canceled, then waits for a running check to finish
func (s *DailyScheduler) Start(ctx context.Context) {
	s.baseCtx = ctx
	s.cron.Start()
	s.logger.Info("Daily check scheduler started", "schedule", s.schedule, "location", s.cron.Location().String())

	<-ctx.Done()
	s.logger.Info("Daily check scheduler stopping due to context cancellation.")
	<-s.cron.Stop().Done()
}

func (s *DailyScheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.runner.Run(runCtx); err != nil {
		s.logger.Error("Daily check failed", "error", err)
	}
}

// cronLogger adapts slog to the cron.Logger interface
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
