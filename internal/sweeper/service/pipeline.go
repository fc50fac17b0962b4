package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/payment-message-ledger/internal/domain/shared"
)

// Pipeline runs its stages in strict sequence; a stage sees every write of the stages before it.
// The first stage error aborts the pass and is forwarded to the error-log channel.
type Pipeline struct {
	name     string
	stages   []Stage
	failures *FailureReporter
	logger   *slog.Logger
}

func NewPipeline(name string, stages []Stage, failures *FailureReporter, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		name:     name,
		stages:   stages,
		failures: failures,
		logger:   logger,
	}
}

// Run executes one pass tagged with a fresh run id
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	ctx = shared.WithCorrelationID(ctx, runID)
	logger := p.logger.With("run_id", runID)

	start := time.Now()
	logger.Info("Starting pass", "pipeline", p.name, "stages", len(p.stages))

	err := p.failures.Guard(ctx, p.name, func(ctx context.Context) error {
		for _, stage := range p.stages {
			if err := ctx.Err(); err != nil {
				return err
			}

			stageStart := time.Now()
			logger.Debug("Running stage", "stage", stage.Name())
			if err := stage.Run(ctx); err != nil {
				return fmt.Errorf("stage %s failed: %w", stage.Name(), err)
			}
			logger.Info("Stage completed", "stage", stage.Name(), "duration", time.Since(stageStart).String())
		}
		return nil
	})
	if err != nil {
		logger.Error("Pass aborted", "pipeline", p.name, "error", err, "duration", time.Since(start).String())
		return err
	}

	logger.Info("Pass completed", "pipeline", p.name, "duration", time.Since(start).String())
	return nil
}

// StageNames lists the stages in execution order
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		names = append(names, stage.Name())
	}
	return names
}
