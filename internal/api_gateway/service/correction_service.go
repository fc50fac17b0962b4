package service

import (
	"context"
	"log/slog"

	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/payment-message-ledger/internal/platform/messaging/producers"
)

// CorrectionServiceImpl implements the CorrectionService interface
type CorrectionServiceImpl struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewCorrectionService creates a new correction service
func NewCorrectionService(logger *slog.Logger, producer producers.MessagePublisher) CorrectionService {
	return &CorrectionServiceImpl{
		producer: producer,
		logger:   logger,
	}
}

// SubmitCorrection publishes the request keyed by thread so corrections on one thread stay ordered
func (s *CorrectionServiceImpl) SubmitCorrection(ctx context.Context, request *shared.CorrectionRequest) error {
	if err := s.producer.Publish(ctx, request.ThreadTS, request); err != nil {
		s.logger.Error("Failed to publish correction request",
			"channel", request.Channel,
			"thread_ts", request.ThreadTS,
			"error", err,
		)
		return err
	}

	s.logger.Info("Correction request published",
		"channel", request.Channel,
		"thread_ts", request.ThreadTS,
		"correlation_id", request.CorrelationID,
	)
	return nil
}
