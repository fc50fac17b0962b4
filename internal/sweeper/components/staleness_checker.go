package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/config"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/sweeper/service"
)

// StalenessChecker reminds the owner of an ingestion channel when nothing was uploaded for too long
type StalenessChecker struct {
	repo      record.Repository
	notifier  bestEffortNotifier
	channel   string
	sources   []config.StalenessChannel
	threshold time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewStalenessChecker(
	repo record.Repository,
	notify service.Notifier,
	channel string,
	notifyTimeout time.Duration,
	cfg config.StalenessConfig,
	logger *slog.Logger,
) *StalenessChecker {
	return &StalenessChecker{
		repo:      repo,
		notifier:  bestEffortNotifier{target: notify, timeout: notifyTimeout, logger: logger},
		channel:   channel,
		sources:   cfg.Channels,
		threshold: cfg.Threshold,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *StalenessChecker) Name() string { return "staleness_checker" }

func (s *StalenessChecker) Run(ctx context.Context) error {
	now := s.now().UTC()

	for _, source := range s.sources {
		latest, err := s.repo.LatestPaidAt(ctx, source.Prefix)
		if err != nil {
			return fmt.Errorf("failed to read latest upload for %s: %w", source.Prefix, err)
		}
		if latest == nil {
			s.logger.Info("No uploads yet for channel", "prefix", source.Prefix)
			continue
		}

		elapsed := now.Sub(latest.UTC())
		if elapsed < s.threshold {
			s.logger.Debug("Channel upload is fresh", "prefix", source.Prefix, "remaining", (s.threshold - elapsed).String())
			continue
		}

		s.logger.Warn("Channel upload is stale", "prefix", source.Prefix, "elapsed", elapsed.String())
		s.notifier.send(ctx, s.channel, FormatStalenessReminder(source.Mention, s.threshold))
	}
	return nil
}
