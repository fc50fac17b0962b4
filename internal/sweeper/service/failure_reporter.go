package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/payment-message-ledger/internal/domain/shared"
)

// FailureReporter forwards unexpected sweep and daily-check failures to the error-log channel
type FailureReporter struct {
	notifier Notifier
	channel  string
	timeout  time.Duration
	logger   *slog.Logger
}

func NewFailureReporter(notifier Notifier, channel string, timeout time.Duration, logger *slog.Logger) *FailureReporter {
	return &FailureReporter{
		notifier: notifier,
		channel:  channel,
		timeout:  timeout,
		logger:   logger,
	}
}

// Guard runs fn and reports its error or panic. A panic is returned as an error.
// Cancellation of ctx is shutdown, not a failure, and is not reported.
func (r *FailureReporter) Guard(ctx context.Context, operation string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s: %v", operation, p)
			r.Report(ctx, operation, err, debug.Stack())
		}
	}()

	err = fn(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.Report(ctx, operation, err, nil)
	}
	return err
}

// Report posts the failure with the optional stack trace. Delivery failure is only logged.
func (r *FailureReporter) Report(ctx context.Context, operation string, failure error, stack []byte) {
	logger := r.logger
	correlationID := shared.CorrelationIDFromContext(ctx)
	if correlationID != "" {
		logger = r.logger.With("correlation_id", correlationID)
	}
	logger.Error("Operation failed", "operation", operation, "error", failure)

	text := fmt.Sprintf("%s failed (id: %s)\n%v", operation, correlationID, failure)
	if len(stack) > 0 {
		text += "\n```\n" + string(stack) + "```"
	}

	// The failed operation's context may already be past its deadline
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.notifier.Send(sendCtx, r.channel, text); err != nil {
		logger.Error("Failed to forward failure to error-log channel", "operation", operation, "error", err)
	}
}
