package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/domain/receipt"
	"github.com/payment-message-ledger/internal/domain/record"
)

// ReceiptLinker links resale-goods payments to the receipt with equal total and the closest date
type ReceiptLinker struct {
	repo       record.Repository
	receipts   receipt.Repository
	cutoff     time.Time
	maxDayDiff int
	logger     *slog.Logger
}

func NewReceiptLinker(
	repo record.Repository,
	receipts receipt.Repository,
	cutoff time.Time,
	maxDayDiff int,
	logger *slog.Logger,
) *ReceiptLinker {
	return &ReceiptLinker{
		repo:       repo,
		receipts:   receipts,
		cutoff:     cutoff,
		maxDayDiff: maxDayDiff,
		logger:     logger,
	}
}

func (l *ReceiptLinker) Name() string { return "receipt_linker" }

func (l *ReceiptLinker) Run(ctx context.Context) error {
	payments, err := l.repo.ListResaleWithoutReceipt(ctx, l.cutoff)
	if err != nil {
		return fmt.Errorf("failed to list resale payments: %w", err)
	}
	if len(payments) == 0 {
		return nil
	}

	receipts, err := l.receipts.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list receipts: %w", err)
	}

	linked := 0
	for _, payment := range payments {
		match, dayDiff := MatchReceipt(payment, receipts, l.maxDayDiff)
		if match == nil {
			l.logger.Debug("No receipt matches payment", "message_id", payment.MessageID)
			continue
		}

		if err := l.repo.LinkReceipt(ctx, payment.MessageID, match.ID); err != nil {
			if errors.Is(err, record.ErrReceiptAlreadyLinked{}) {
				l.logger.Info("Payment was linked concurrently, keeping existing link", "message_id", payment.MessageID)
			} else {
				l.logger.Error("Failed to link receipt", "message_id", payment.MessageID, "receipt_id", match.ID, "error", err)
			}
			continue
		}

		l.logger.Info("Linked receipt",
			"message_id", payment.MessageID,
			"receipt_id", match.ID,
			"amount", *payment.Amount,
			"currency", string(*payment.Currency),
			"day_diff", dayDiff,
		)
		linked++
	}

	l.logger.Info("Receipt linking finished", "payments", len(payments), "receipts", len(receipts), "linked", linked)
	return nil
}

// MatchReceipt returns the receipt with the payment's currency and exact total whose date is
// closest to the payment date and at most maxDayDiff days away. Ties keep the first receipt.
// Payment timestamps are stored in UTC and compared by their UTC calendar date.
func MatchReceipt(payment *record.Record, receipts []*receipt.Receipt, maxDayDiff int) (*receipt.Receipt, int) {
	if payment.Amount == nil || payment.Currency == nil {
		return nil, 0
	}

	paidOn := civilDate(payment.PaidAt.UTC())

	var best *receipt.Receipt
	bestDiff := 0
	for _, rc := range receipts {
		if rc.Currency() != *payment.Currency || rc.Total() != *payment.Amount {
			continue
		}
		diff := dayDiff(paidOn, civilDate(rc.Date))
		if diff > maxDayDiff {
			continue
		}
		if best == nil || diff < bestDiff {
			best, bestDiff = rc, diff
		}
	}
	return best, bestDiff
}

// civilDate drops the time of day, keeping the calendar date of t
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayDiff(a, b time.Time) int {
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
