package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/payment-message-ledger/internal/classifier"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
)

// Stage is one step of a sweep or of the daily check
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner executes a full pass of stages
type Runner interface {
	Run(ctx context.Context) error
}

// Transactor runs a unit of work inside its own database transaction
type Transactor interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Notifier posts messages to chat channels
type Notifier interface {
	Send(ctx context.Context, channel, text string) error
	Reply(ctx context.Context, channel, threadTS, text string) error
}

// MessageClassifier extracts transaction fields from normalized message text
type MessageClassifier interface {
	Classify(ctx context.Context, text string, category shared.SenderCategory) (record.Extraction, error)
}

// AccountClassifier assigns purpose and account categories
type AccountClassifier interface {
	Infer(ctx context.Context, in classifier.InferenceInput) (classifier.Result, error)
	Correct(ctx context.Context, reportText, correctionText string) (classifier.Result, error)
}

// BatchRunner runs a batch of independent tasks and returns once all of them have finished
type BatchRunner interface {
	RunBatch(ctx context.Context, tasks []func())
}

// CorrectionApplier applies a human correction received from the chat channel
type CorrectionApplier interface {
	ApplyCorrection(ctx context.Context, request *shared.CorrectionRequest) error
}
