package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/payment-message-ledger/internal/config"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
)

var ErrUnknownSender = errors.New("sender is in neither the card nor the bank table")

func resolveSender(senders config.SenderDirectory, number string) (string, shared.SenderCategory, error) {
	name, category, ok := senders.Lookup(number)
	if !ok {
		return "", "", ErrUnknownSender
	}
	return name, category, nil
}

// SenderResolver fills the sender display name and includes the record in the ledger
type SenderResolver struct {
	repo    record.Repository
	senders config.SenderDirectory
	logger  *slog.Logger
}

func NewSenderResolver(repo record.Repository, senders config.SenderDirectory, logger *slog.Logger) *SenderResolver {
	return &SenderResolver{
		repo:    repo,
		senders: senders,
		logger:  logger,
	}
}

func (s *SenderResolver) Name() string { return "sender_resolver" }

func (s *SenderResolver) Run(ctx context.Context) error {
	records, err := s.repo.ListWithoutSenderName(ctx)
	if err != nil {
		return fmt.Errorf("failed to list records without sender name: %w", err)
	}

	resolved := 0
	for _, rec := range records {
		name, _, err := resolveSender(s.senders, rec.SenderNumber)
		if err != nil {
			s.logger.Warn("Leaving sender unresolved", "message_id", rec.MessageID, "sender_number", rec.SenderNumber, "error", err)
			continue
		}
		if err := s.repo.SetSenderName(ctx, rec.MessageID, name); err != nil {
			s.logger.Error("Failed to set sender name", "message_id", rec.MessageID, "error", err)
			continue
		}
		resolved++
	}

	s.logger.Info("Resolved sender names", "candidates", len(records), "resolved", resolved)
	return nil
}
