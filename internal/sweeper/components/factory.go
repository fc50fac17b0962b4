package components

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/config"
	"github.com/payment-message-ledger/internal/domain/audit"
	"github.com/payment-message-ledger/internal/domain/receipt"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/normalize"
	"github.com/payment-message-ledger/internal/sweeper/service"
)

// Dependencies are the collaborators shared by the sweep, the daily check and the correction listener
type Dependencies struct {
	DB                service.Transactor
	Records           record.Repository
	Receipts          receipt.Repository
	Audit             audit.Repository
	MessageClassifier service.MessageClassifier
	AccountClassifier service.AccountClassifier
	Notifier          service.Notifier
	Workers           service.BatchRunner
}

// CreateSweepService wires the periodic sweep stages in their fixed order
func CreateSweepService(deps Dependencies, cfg *config.Config, logger *slog.Logger) (*service.Pipeline, error) {
	location, err := time.LoadLocation(cfg.Schedule.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", cfg.Schedule.TimeZone, err)
	}

	stages := []service.Stage{
		NewSenderResolver(deps.Records, cfg.Senders, logger.With("component", "sender_resolver")),
		NewDeduplicator(deps.Records, record.DuplicateSignature{
			IDPrefix:     cfg.Dedup.IDPrefix,
			SenderNumber: cfg.Dedup.SenderNumber,
			Marker:       cfg.Dedup.Marker,
		}, logger.With("component", "deduplicator")),
		NewMessageClassification(
			deps.Records,
			deps.MessageClassifier,
			normalize.Default(),
			cfg.Senders,
			cfg.Pipeline.ClassificationCutoff,
			logger.With("component", "message_classification"),
		),
		NewCancellationMatcher(deps.Records, cfg.Pipeline.CancellationSimilarityThreshold, logger.With("component", "cancellation_matcher")),
		NewAccountInferrer(
			deps.DB,
			deps.Records,
			deps.AccountClassifier,
			deps.Audit,
			deps.Workers,
			deps.Notifier,
			cfg.Channels.Account,
			cfg.Channels.NotifyTimeout,
			InferenceSettings{
				BatchSize:           cfg.Pipeline.InferenceBatchSize,
				ContextCap:          cfg.Pipeline.InferenceContextCap,
				MinConfidence:       cfg.Pipeline.InferenceMinConfidence,
				SimilarityThreshold: cfg.Pipeline.InferenceSimilarityThreshold,
			},
			location,
			logger.With("component", "account_inferrer"),
		),
		NewReceiptLinker(
			deps.Records,
			deps.Receipts,
			cfg.Pipeline.LinkerCutoff,
			cfg.Pipeline.LinkerMaxDayDiff,
			logger.With("component", "receipt_linker"),
		),
	}
	if cfg.Schedule.SweepReportUnlinked {
		stages = append(stages, newUnlinkedReporter(deps, cfg, location, logger))
	}

	return service.NewPipeline("sweep", stages, newFailureReporter(deps, cfg, logger), logger.With("component", "sweep")), nil
}

// CreateDailyCheckService wires the once-a-day staleness and unlinked-receipt checks
func CreateDailyCheckService(deps Dependencies, cfg *config.Config, logger *slog.Logger) (*service.Pipeline, error) {
	location, err := time.LoadLocation(cfg.Schedule.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", cfg.Schedule.TimeZone, err)
	}

	stages := []service.Stage{
		NewStalenessChecker(
			deps.Records,
			deps.Notifier,
			cfg.Channels.Account,
			cfg.Channels.NotifyTimeout,
			cfg.Staleness,
			logger.With("component", "staleness_checker"),
		),
		newUnlinkedReporter(deps, cfg, location, logger),
	}

	return service.NewPipeline("daily_check", stages, newFailureReporter(deps, cfg, logger), logger.With("component", "daily_check")), nil
}

// CreateCorrectionApplier wires the handler for human corrections
func CreateCorrectionApplier(deps Dependencies, cfg *config.Config, logger *slog.Logger) service.CorrectionApplier {
	return NewCorrectionApplier(
		deps.DB,
		deps.Records,
		deps.AccountClassifier,
		deps.Audit,
		deps.Notifier,
		cfg.Channels.Account,
		cfg.Channels.NotifyTimeout,
		logger.With("component", "correction_applier"),
	)
}

func newUnlinkedReporter(deps Dependencies, cfg *config.Config, location *time.Location, logger *slog.Logger) *UnlinkedReporter {
	return NewUnlinkedReporter(
		deps.Records,
		deps.Notifier,
		cfg.Channels.Receipt,
		cfg.Channels.NotifyTimeout,
		cfg.Pipeline.UnlinkedReportCutoff,
		location,
		logger.With("component", "unlinked_reporter"),
	)
}

func newFailureReporter(deps Dependencies, cfg *config.Config, logger *slog.Logger) *service.FailureReporter {
	return service.NewFailureReporter(deps.Notifier, cfg.Channels.ErrorLog, cfg.Channels.NotifyTimeout, logger.With("component", "failure_reporter"))
}
