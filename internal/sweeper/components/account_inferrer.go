package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/payment-message-ledger/internal/classifier"
	"github.com/payment-message-ledger/internal/domain/audit"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/payment-message-ledger/internal/sweeper/service"
)

// InferenceSettings bounds the account inference stage
type InferenceSettings struct {
	BatchSize           int
	ContextCap          int
	MinConfidence       float64
	SimilarityThreshold float64
}

// AccountInferrer classifies purpose-less approvals in sequential batches.
// Records inside a batch run concurrently, each in its own transaction.
type AccountInferrer struct {
	db         service.Transactor
	repo       record.Repository
	classifier service.AccountClassifier
	auditRepo  audit.Repository
	workers    service.BatchRunner
	notifier   bestEffortNotifier
	channel    string
	settings   InferenceSettings
	location   *time.Location
	logger     *slog.Logger
}

func NewAccountInferrer(
	db service.Transactor,
	repo record.Repository,
	accountClassifier service.AccountClassifier,
	auditRepo audit.Repository,
	workers service.BatchRunner,
	notify service.Notifier,
	channel string,
	notifyTimeout time.Duration,
	settings InferenceSettings,
	location *time.Location,
	logger *slog.Logger,
) *AccountInferrer {
	return &AccountInferrer{
		db:         db,
		repo:       repo,
		classifier: accountClassifier,
		auditRepo:  auditRepo,
		workers:    workers,
		notifier:   bestEffortNotifier{target: notify, timeout: notifyTimeout, logger: logger},
		channel:    channel,
		settings:   settings,
		location:   location,
		logger:     logger,
	}
}

func (a *AccountInferrer) Name() string { return "account_inferrer" }

func (a *AccountInferrer) Run(ctx context.Context) error {
	targets, err := a.repo.ListInferenceTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list inference targets: %w", err)
	}
	if len(targets) == 0 {
		return nil
	}

	// Read once per sweep and shared read-only by every record in every batch
	pool, err := a.repo.ListContextPool(ctx, a.settings.MinConfidence)
	if err != nil {
		return fmt.Errorf("failed to list context pool: %w", err)
	}

	var inferred, skipped, failed atomic.Int64
	batchSize := max(a.settings.BatchSize, 1)

	for start := 0; start < len(targets); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := targets[start:min(start+batchSize, len(targets))]
		tasks := make([]func(), 0, len(batch))
		for _, target := range batch {
			tasks = append(tasks, func() {
				logger := a.logger.With("message_id", target.MessageID)
				defer func() {
					if p := recover(); p != nil {
						logger.Error("Panic during account inference", "panic", p)
						failed.Add(1)
					}
				}()

				ok, err := a.inferOne(ctx, target.MessageID, pool)
				switch {
				case err != nil && errors.Is(err, record.ErrConcurrentModification{}):
					logger.Info("Record changed during inference, leaving it for the next sweep")
					skipped.Add(1)
				case err != nil:
					logger.Warn("Account inference failed", "error", err)
					failed.Add(1)
				case ok:
					inferred.Add(1)
				default:
					skipped.Add(1)
				}
			})
		}

		a.workers.RunBatch(ctx, tasks)
		a.logger.Debug("Inference batch finished", "batch_start", start, "batch_size", len(batch))
	}

	a.logger.Info("Account inference finished",
		"targets", len(targets),
		"context_pool", len(pool),
		"inferred", inferred.Load(),
		"skipped", skipped.Load(),
		"failed", failed.Load(),
	)
	return nil
}

// inferOne re-reads the record in its own transaction, asks the classifier, reports, and
// persists. It returns false without error when the record no longer needs inference.
func (a *AccountInferrer) inferOne(ctx context.Context, messageID string, pool []*record.Record) (bool, error) {
	var result *classifier.Result

	err := a.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := a.repo.WithTx(tx)

		rec, err := repo.GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if rec.HasPurpose() || !rec.IsKind(shared.KindApproval) || rec.Counterparty == nil {
			return nil
		}

		entries := BuildSimilarityContext(rec, pool, a.settings.SimilarityThreshold, a.settings.ContextCap)
		res, err := a.classifier.Infer(ctx, classifier.InferenceInput{
			Counterparty: rec.CounterpartyName(),
			Amount:       rec.Amount,
			Currency:     rec.Currency,
			Context:      entries,
		})
		if err != nil {
			return fmt.Errorf("account classifier failed: %w", err)
		}
		if err := res.Validate(); err != nil {
			return fmt.Errorf("%w: %v", classifier.ErrMalformedOutput, err)
		}

		a.notifier.send(ctx, a.channel, FormatInferenceReport(rec, res.Classification, a.location))

		if err := repo.SaveClassification(ctx, rec.MessageID, rec.Version, res.Classification); err != nil {
			return err
		}
		result = &res
		return nil
	})
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}

	appendAudit(ctx, a.auditRepo, a.logger, &audit.Entry{
		MessageID:      messageID,
		Source:         shared.ClassificationSourceInference,
		Purpose:        result.Purpose,
		CategoryMajor:  result.CategoryMajor,
		CategoryMinor:  result.CategoryMinor,
		Reason:         result.Reason,
		Confidence:     result.Confidence,
		ConversationID: result.ConversationID,
		CorrelationID:  shared.CorrelationIDFromContext(ctx),
	})
	return true, nil
}

// appendAudit records an accepted classification; a failure never undoes the record write
func appendAudit(ctx context.Context, repo audit.Repository, logger *slog.Logger, entry *audit.Entry) {
	if repo == nil {
		return
	}
	entry.CreatedAt = time.Now().UTC()
	if err := repo.Append(ctx, entry); err != nil {
		logger.Warn("Failed to append classification audit entry", "message_id", entry.MessageID, "error", err)
	}
}
