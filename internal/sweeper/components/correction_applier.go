package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/payment-message-ledger/internal/domain/audit"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/payment-message-ledger/internal/sweeper/service"
)

// CorrectedConfidence is stored with every human correction
const CorrectedConfidence = 1.0

var ErrMissingRecordID = errors.New("report text carries no record id marker")

var recordIDPattern = regexp.MustCompile(`(?:아이디|ID):\s*(\S+)`)

// ExtractRecordID finds the record id a report was generated for
func ExtractRecordID(reportText string) (string, error) {
	match := recordIDPattern.FindStringSubmatch(reportText)
	if match == nil {
		return "", ErrMissingRecordID
	}
	return match[1], nil
}

// CorrectionApplierImpl overwrites a reported classification with a human correction.
// The record row is locked for the write, so a correction always wins over a concurrent sweep.
type CorrectionApplierImpl struct {
	db         service.Transactor
	repo       record.Repository
	classifier service.AccountClassifier
	auditRepo  audit.Repository
	notifier   bestEffortNotifier
	channel    string
	logger     *slog.Logger
}

func NewCorrectionApplier(
	db service.Transactor,
	repo record.Repository,
	accountClassifier service.AccountClassifier,
	auditRepo audit.Repository,
	notify service.Notifier,
	channel string,
	notifyTimeout time.Duration,
	logger *slog.Logger,
) service.CorrectionApplier {
	return &CorrectionApplierImpl{
		db:         db,
		repo:       repo,
		classifier: accountClassifier,
		auditRepo:  auditRepo,
		notifier:   bestEffortNotifier{target: notify, timeout: notifyTimeout, logger: logger},
		channel:    channel,
		logger:     logger,
	}
}

// ApplyCorrection handles one thread reply. Format and not-found problems are answered in the
// thread and return nil; store failures are answered and returned.
func (c *CorrectionApplierImpl) ApplyCorrection(ctx context.Context, request *shared.CorrectionRequest) error {
	logger := c.logger
	if request.CorrelationID != "" {
		logger = c.logger.With("correlation_id", request.CorrelationID)
	}

	if request.Channel != c.channel {
		logger.Debug("Ignoring correction from another channel", "channel", request.Channel)
		return nil
	}

	messageID, err := ExtractRecordID(request.OriginalText)
	if err != nil {
		logger.Warn("Correction thread has no record id", "thread_ts", request.ThreadTS)
		c.notifier.reply(ctx, request.Channel, request.ThreadTS, replyMissingRecordID)
		return nil
	}
	logger = logger.With("message_id", messageID)

	if _, err := c.repo.GetByID(ctx, messageID); err != nil {
		return c.replyStoreError(ctx, logger, request, messageID, err)
	}

	result, err := c.classifier.Correct(ctx, request.OriginalText, request.CorrectionText)
	if err != nil {
		logger.Warn("Correction classifier failed", "error", err)
		c.notifier.reply(ctx, request.Channel, request.ThreadTS, formatClassifierFailure(err))
		return nil
	}

	corrected := result.Classification
	corrected.Confidence = CorrectedConfidence

	err = c.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := c.repo.WithTx(tx)
		if _, err := repo.LockForUpdate(ctx, messageID); err != nil {
			return err
		}
		return repo.OverwriteClassification(ctx, messageID, corrected)
	})
	if err != nil {
		return c.replyStoreError(ctx, logger, request, messageID, err)
	}

	appendAudit(ctx, c.auditRepo, logger, &audit.Entry{
		MessageID:      messageID,
		Source:         shared.ClassificationSourceCorrection,
		Purpose:        corrected.Purpose,
		CategoryMajor:  corrected.CategoryMajor,
		CategoryMinor:  corrected.CategoryMinor,
		Reason:         corrected.Reason,
		Confidence:     corrected.Confidence,
		ConversationID: result.ConversationID,
		CorrelationID:  request.CorrelationID,
	})

	logger.Info("Correction applied", "purpose", corrected.Purpose, "user", request.User)
	c.notifier.reply(ctx, request.Channel, request.ThreadTS, FormatCorrectionApplied(messageID, corrected))
	return nil
}

func (c *CorrectionApplierImpl) replyStoreError(ctx context.Context, logger *slog.Logger, request *shared.CorrectionRequest, messageID string, err error) error {
	if errors.Is(err, record.ErrRecordNotFound{}) {
		logger.Warn("Correction references unknown record")
		c.notifier.reply(ctx, request.Channel, request.ThreadTS, formatRecordNotFound(messageID))
		return nil
	}

	logger.Error("Failed to apply correction", "error", err)
	c.notifier.reply(ctx, request.Channel, request.ThreadTS, formatStoreFailure(err))
	return fmt.Errorf("failed to apply correction to %s: %w", messageID, err)
}
