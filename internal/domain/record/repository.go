package record

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/payment-message-ledger/internal/domain/shared"
)

// DuplicateSignature identifies messages ingested twice by a known upstream defect
type DuplicateSignature struct {
	IDPrefix     string
	SenderNumber string
	Marker       string
}

// Repository defines record persistence operations used by the sweep, the
// correction listener and the HTTP API
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, messageID string) (*Record, error)

	// LockForUpdate acquires a row lock; corrections use it to win over a concurrent sweep
	LockForUpdate(ctx context.Context, messageID string) (*Record, error)

	ListWithoutSenderName(ctx context.Context) ([]*Record, error)
	SetSenderName(ctx context.Context, messageID, senderName string) error

	MarkDuplicates(ctx context.Context, sig DuplicateSignature) (int64, error)

	ListUnclassified(ctx context.Context, since time.Time) ([]*Record, error)
	SaveExtraction(ctx context.Context, messageID string, e Extraction) error

	ListByKind(ctx context.Context, kind shared.Kind, withoutPurposeOnly bool) ([]*Record, error)
	SetPurpose(ctx context.Context, messageIDs []string, purpose string) (int64, error)

	ListInferenceTargets(ctx context.Context) ([]*Record, error)
	ListContextPool(ctx context.Context, minConfidence float64) ([]*Record, error)

	// SaveClassification uses optimistic locking and only fills a record whose purpose is still unset
	SaveClassification(ctx context.Context, messageID string, version int, c Classification) error
	// OverwriteClassification replaces the classification unconditionally
	OverwriteClassification(ctx context.Context, messageID string, c Classification) error

	ListResaleWithoutReceipt(ctx context.Context, since time.Time) ([]*Record, error)
	LinkReceipt(ctx context.Context, messageID string, receiptID int64) error

	// LatestPaidAt returns nil when no record id starts with prefix
	LatestPaidAt(ctx context.Context, idPrefix string) (*time.Time, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrRecordNotFound indicates a missing record
type ErrRecordNotFound struct {
	MessageID string
}

func (e ErrRecordNotFound) Error() string {
	return "record not found: " + e.MessageID
}

// Is matches any ErrRecordNotFound when the target id is empty
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	return t.MessageID == "" || t.MessageID == e.MessageID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	MessageID string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for record: " + e.MessageID
}

func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.MessageID == "" || t.MessageID == e.MessageID
}

// ErrReceiptAlreadyLinked indicates the record gained a receipt link since it was read
type ErrReceiptAlreadyLinked struct {
	MessageID string
}

func (e ErrReceiptAlreadyLinked) Error() string {
	return "record already linked to a receipt: " + e.MessageID
}

func (e ErrReceiptAlreadyLinked) Is(target error) bool {
	t, ok := target.(ErrReceiptAlreadyLinked)
	if !ok {
		return false
	}
	return t.MessageID == "" || t.MessageID == e.MessageID
}

// ErrDuplicateRecord indicates message id uniqueness violation
type ErrDuplicateRecord struct {
	MessageID string
}

func (e ErrDuplicateRecord) Error() string {
	return "record already exists: " + e.MessageID
}

func (e ErrDuplicateRecord) Is(target error) bool {
	t, ok := target.(ErrDuplicateRecord)
	if !ok {
		return false
	}
	return t.MessageID == "" || t.MessageID == e.MessageID
}
