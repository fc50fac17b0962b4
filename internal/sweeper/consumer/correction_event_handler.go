package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/payment-message-ledger/internal/platform/messaging/producers"
	"github.com/payment-message-ledger/internal/sweeper/service"
)

// CorrectionEventHandler handles human correction messages from Kafka
type CorrectionEventHandler struct {
	applier  service.CorrectionApplier
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewCorrectionEventHandler creates a new handler; producer may be nil when no DLQ is configured
func NewCorrectionEventHandler(
	logger *slog.Logger,
	applier service.CorrectionApplier,
	producer producers.DeadLetterPublisher,
) *CorrectionEventHandler {
	return &CorrectionEventHandler{
		applier:  applier,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes Kafka messages
func (h *CorrectionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.CorrectionRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal correction request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				// parked, commit offset
				return nil
			}
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
		ctx = shared.WithCorrelationID(ctx, request.CorrelationID)
	}

	logger.Info("Received correction",
		"channel", request.Channel,
		"thread_ts", request.ThreadTS,
		"user", request.User,
	)

	if err := h.applier.ApplyCorrection(ctx, &request); err != nil {
		logger.Error("Failed to apply correction", "thread_ts", request.ThreadTS, "error", err)
		return fmt.Errorf("applying correction for thread %s failed: %w", request.ThreadTS, err)
	}

	return nil
}
