package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/sweeper/service"
)

// UnlinkedReporter posts one message per resale payment still missing a receipt.
// Records drop out of the selection once linked, so re-reporting is expected.
type UnlinkedReporter struct {
	repo     record.Repository
	notifier bestEffortNotifier
	channel  string
	cutoff   time.Time
	location *time.Location
	logger   *slog.Logger
}

func NewUnlinkedReporter(
	repo record.Repository,
	notify service.Notifier,
	channel string,
	notifyTimeout time.Duration,
	cutoff time.Time,
	location *time.Location,
	logger *slog.Logger,
) *UnlinkedReporter {
	return &UnlinkedReporter{
		repo:     repo,
		notifier: bestEffortNotifier{target: notify, timeout: notifyTimeout, logger: logger},
		channel:  channel,
		cutoff:   cutoff,
		location: location,
		logger:   logger,
	}
}

func (u *UnlinkedReporter) Name() string { return "unlinked_reporter" }

func (u *UnlinkedReporter) Run(ctx context.Context) error {
	payments, err := u.repo.ListResaleWithoutReceipt(ctx, u.cutoff)
	if err != nil {
		return fmt.Errorf("failed to list unlinked payments: %w", err)
	}
	if len(payments) == 0 {
		u.logger.Info("No unlinked resale payments")
		return nil
	}

	sent := 0
	for _, payment := range payments {
		if u.notifier.send(ctx, u.channel, FormatUnlinkedReport(payment, u.location)) {
			sent++
		}
	}

	u.logger.Info("Reported unlinked resale payments", "sent", sent, "total", len(payments))
	return nil
}
