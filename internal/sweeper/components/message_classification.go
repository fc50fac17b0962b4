package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/config"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/normalize"
	"github.com/payment-message-ledger/internal/sweeper/service"
)

// MessageClassification types every untyped record observed at or after the cutoff.
// Records are handled one at a time; classifier calls are rate-sensitive.
type MessageClassification struct {
	repo       record.Repository
	classifier service.MessageClassifier
	normalizer normalize.Normalizer
	senders    config.SenderDirectory
	cutoff     time.Time
	logger     *slog.Logger
}

func NewMessageClassification(
	repo record.Repository,
	classifier service.MessageClassifier,
	normalizer normalize.Normalizer,
	senders config.SenderDirectory,
	cutoff time.Time,
	logger *slog.Logger,
) *MessageClassification {
	return &MessageClassification{
		repo:       repo,
		classifier: classifier,
		normalizer: normalizer,
		senders:    senders,
		cutoff:     cutoff,
		logger:     logger,
	}
}

func (m *MessageClassification) Name() string { return "message_classification" }

func (m *MessageClassification) Run(ctx context.Context) error {
	records, err := m.repo.ListUnclassified(ctx, m.cutoff)
	if err != nil {
		return fmt.Errorf("failed to list unclassified records: %w", err)
	}

	classified, skipped := 0, 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.classify(ctx, rec) {
			classified++
		} else {
			skipped++
		}
	}

	m.logger.Info("Classified messages", "candidates", len(records), "classified", classified, "skipped", skipped)
	return nil
}

// classify reports whether the record was typed; every failure leaves it for the next sweep
func (m *MessageClassification) classify(ctx context.Context, rec *record.Record) bool {
	logger := m.logger.With("message_id", rec.MessageID)

	_, category, err := resolveSender(m.senders, rec.SenderNumber)
	if err != nil {
		logger.Warn("Skipping message from unknown sender", "sender_number", rec.SenderNumber, "error", err)
		return false
	}

	text := m.normalizer.Normalize(rec.Message)
	extraction, err := m.classifier.Classify(ctx, text, category)
	if err != nil {
		logger.Warn("Message classifier failed", "sender_category", string(category), "error", err)
		return false
	}
	if err := extraction.Validate(); err != nil {
		logger.Warn("Discarding invalid extraction", "error", err)
		return false
	}

	if err := m.repo.SaveExtraction(ctx, rec.MessageID, extraction); err != nil {
		if errors.Is(err, record.ErrConcurrentModification{}) {
			logger.Info("Record was typed concurrently, skipping")
		} else {
			logger.Error("Failed to save extraction", "error", err)
		}
		return false
	}

	logger.Debug("Message classified", "kind", string(extraction.Kind))
	return true
}
