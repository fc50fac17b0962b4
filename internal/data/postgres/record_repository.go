// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every method runs against either the pool or a caller-provided transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/payment-message-ledger/internal/platform/persistence"
)

const recordColumns = `message_id, message, in_ledger, paid_at, sender_number, type, amount, currency,
		counterparty, sender_name, purpose, category_major, category_minor, reason, confidence,
		receipt_id, version, created_at, updated_at`

// RecordRepository implements the record.Repository interface for PostgreSQL
type RecordRepository struct {
	querier persistence.Querier // Can be the pool or pgx.Tx
	logger  *slog.Logger
}

// NewRecordRepository creates a new PostgreSQL record repository
func NewRecordRepository(logger *slog.Logger, db *persistence.PostgresDB) record.Repository {
	return &RecordRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *RecordRepository) WithTx(tx pgx.Tx) record.Repository {
	return &RecordRepository{
		querier: tx,
		logger:  r.logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*record.Record, error) {
	var (
		rec        record.Record
		kind       *string
		currency   *string
		amount     *int64
		confidence *float64
		receiptID  *int64
	)
	err := row.Scan(
		&rec.MessageID,
		&rec.Message,
		&rec.InLedger,
		&rec.PaidAt,
		&rec.SenderNumber,
		&kind,
		&amount,
		&currency,
		&rec.Counterparty,
		&rec.SenderName,
		&rec.Purpose,
		&rec.CategoryMajor,
		&rec.CategoryMinor,
		&rec.Reason,
		&confidence,
		&receiptID,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if kind != nil {
		k := shared.Kind(*kind)
		rec.Kind = &k
	}
	if currency != nil {
		c := shared.Currency(*currency)
		rec.Currency = &c
	}
	rec.Amount = amount
	rec.Confidence = confidence
	rec.ReceiptID = receiptID
	return &rec, nil
}

func (r *RecordRepository) queryRecords(ctx context.Context, op, query string, args ...interface{}) ([]*record.Record, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query records", "op", op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var records []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan record", "op", op, "error", err)
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating records", "op", op, "error", err)
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// Create stores a freshly ingested record
func (r *RecordRepository) Create(ctx context.Context, rec *record.Record) error {
	query := `
		INSERT INTO payment_messages (message_id, message, in_ledger, paid_at, sender_number, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		rec.MessageID,
		rec.Message,
		rec.InLedger,
		rec.PaidAt,
		rec.SenderNumber,
		rec.Version,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return record.ErrDuplicateRecord{MessageID: rec.MessageID}
		}
		r.logger.Error("Failed to create record", "message_id", rec.MessageID, "error", err)
		return fmt.Errorf("failed to create record: %w", err)
	}

	return nil
}

// GetByID retrieves a record by its message id
func (r *RecordRepository) GetByID(ctx context.Context, messageID string) (*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE message_id = $1
	`

	rec, err := scanRecord(r.querier.QueryRow(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound{MessageID: messageID}
		}
		r.logger.Error("Failed to get record", "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}

// LockForUpdate reads a record and holds its row lock until the transaction ends
func (r *RecordRepository) LockForUpdate(ctx context.Context, messageID string) (*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE message_id = $1
		FOR UPDATE
	`

	rec, err := scanRecord(r.querier.QueryRow(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound{MessageID: messageID}
		}
		r.logger.Error("Failed to lock record for update", "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to lock record for update: %w", err)
	}

	return rec, nil
}

// ListWithoutSenderName returns records whose sender has not been resolved yet
func (r *RecordRepository) ListWithoutSenderName(ctx context.Context) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE sender_name IS NULL
		ORDER BY paid_at ASC
	`
	return r.queryRecords(ctx, "list records without sender name", query)
}

// SetSenderName stores the display name and includes the record in the ledger
func (r *RecordRepository) SetSenderName(ctx context.Context, messageID, senderName string) error {
	query := `
		UPDATE payment_messages
		SET sender_name = $1, in_ledger = TRUE, version = version + 1, updated_at = NOW()
		WHERE message_id = $2 AND sender_name IS NULL
	`

	if _, err := r.querier.Exec(ctx, query, senderName, messageID); err != nil {
		r.logger.Error("Failed to set sender name", "message_id", messageID, "error", err)
		return fmt.Errorf("failed to set sender name: %w", err)
	}
	return nil
}

// MarkDuplicates tags every record matching the signature as not-a-transaction.
// Records already tagged are left alone, so repeated runs affect zero rows.
func (r *RecordRepository) MarkDuplicates(ctx context.Context, sig record.DuplicateSignature) (int64, error) {
	query := `
		UPDATE payment_messages
		SET type = $1, version = version + 1, updated_at = NOW()
		WHERE message_id LIKE $2 AND sender_number = $3 AND message LIKE $4
		AND (type IS NULL OR type <> $1)
	`

	result, err := r.querier.Exec(ctx, query,
		string(shared.KindNotATransaction),
		escapeLike(sig.IDPrefix)+"%",
		sig.SenderNumber,
		"%"+escapeLike(sig.Marker)+"%",
	)
	if err != nil {
		r.logger.Error("Failed to mark duplicate records", "error", err)
		return 0, fmt.Errorf("failed to mark duplicate records: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListUnclassified returns untyped records observed at or after since
func (r *RecordRepository) ListUnclassified(ctx context.Context, since time.Time) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE type IS NULL AND paid_at >= $1
		ORDER BY paid_at ASC
	`
	return r.queryRecords(ctx, "list unclassified records", query, since.UTC())
}

// SaveExtraction persists the message classifier's output for a still-untyped record
func (r *RecordRepository) SaveExtraction(ctx context.Context, messageID string, e record.Extraction) error {
	query := `
		UPDATE payment_messages
		SET type = $1, amount = $2, currency = $3, counterparty = $4, version = version + 1, updated_at = NOW()
		WHERE message_id = $5 AND type IS NULL
	`

	var currency *string
	if e.Currency != nil {
		c := string(*e.Currency)
		currency = &c
	}

	result, err := r.querier.Exec(ctx, query, string(e.Kind), e.Amount, currency, e.Counterparty, messageID)
	if err != nil {
		r.logger.Error("Failed to save extraction", "message_id", messageID, "error", err)
		return fmt.Errorf("failed to save extraction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return record.ErrConcurrentModification{MessageID: messageID}
	}
	return nil
}

// ListByKind returns records of the given kind, optionally only those without a purpose
func (r *RecordRepository) ListByKind(ctx context.Context, kind shared.Kind, withoutPurposeOnly bool) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE type = $1
		ORDER BY paid_at ASC
	`
	if withoutPurposeOnly {
		query = `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE type = $1 AND purpose IS NULL
		ORDER BY paid_at ASC
	`
	}
	return r.queryRecords(ctx, "list records by kind", query, string(kind))
}

// SetPurpose tags records with a rule-derived purpose. A rule is not a classifier
// opinion, so missing confidence is filled with 0 to keep such records out of the context pool.
func (r *RecordRepository) SetPurpose(ctx context.Context, messageIDs []string, purpose string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	query := `
		UPDATE payment_messages
		SET purpose = $1, confidence = COALESCE(confidence, 0), version = version + 1, updated_at = NOW()
		WHERE message_id = ANY($2)
	`

	result, err := r.querier.Exec(ctx, query, purpose, messageIDs)
	if err != nil {
		r.logger.Error("Failed to set purpose", "purpose", purpose, "count", len(messageIDs), "error", err)
		return 0, fmt.Errorf("failed to set purpose: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListInferenceTargets returns approvals with a counterparty and no purpose, oldest first
func (r *RecordRepository) ListInferenceTargets(ctx context.Context) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE type = $1 AND counterparty IS NOT NULL AND purpose IS NULL
		ORDER BY paid_at ASC
	`
	return r.queryRecords(ctx, "list inference targets", query, string(shared.KindApproval))
}

// ListContextPool returns typed transactions classified with at least minConfidence
func (r *RecordRepository) ListContextPool(ctx context.Context, minConfidence float64) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE type IS NOT NULL AND type <> $1 AND confidence >= $2
	`
	return r.queryRecords(ctx, "list context pool", query, string(shared.KindNotATransaction), minConfidence)
}

// SaveClassification writes an inferred classification if the record is unchanged since it was read
func (r *RecordRepository) SaveClassification(ctx context.Context, messageID string, version int, c record.Classification) error {
	query := `
		UPDATE payment_messages
		SET purpose = $1, category_major = $2, category_minor = $3, reason = $4, confidence = $5,
			version = version + 1, updated_at = NOW()
		WHERE message_id = $6 AND version = $7 AND purpose IS NULL
	`

	result, err := r.querier.Exec(ctx, query,
		c.Purpose, c.CategoryMajor, c.CategoryMinor, c.Reason, c.Confidence,
		messageID, version,
	)
	if err != nil {
		r.logger.Error("Failed to save classification", "message_id", messageID, "error", err)
		return fmt.Errorf("failed to save classification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return record.ErrConcurrentModification{MessageID: messageID}
	}
	return nil
}

// OverwriteClassification replaces the classification regardless of current state
func (r *RecordRepository) OverwriteClassification(ctx context.Context, messageID string, c record.Classification) error {
	query := `
		UPDATE payment_messages
		SET purpose = $1, category_major = $2, category_minor = $3, reason = $4, confidence = $5,
			version = version + 1, updated_at = NOW()
		WHERE message_id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		c.Purpose, c.CategoryMajor, c.CategoryMinor, c.Reason, c.Confidence,
		messageID,
	)
	if err != nil {
		r.logger.Error("Failed to overwrite classification", "message_id", messageID, "error", err)
		return fmt.Errorf("failed to overwrite classification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return record.ErrRecordNotFound{MessageID: messageID}
	}
	return nil
}

// ListResaleWithoutReceipt returns resale-goods payments at or after since that have no receipt link
func (r *RecordRepository) ListResaleWithoutReceipt(ctx context.Context, since time.Time) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM payment_messages
		WHERE purpose = $1 AND receipt_id IS NULL AND paid_at >= $2
		AND type IS NOT NULL AND type <> $3
		ORDER BY paid_at ASC
	`
	return r.queryRecords(ctx, "list resale payments without receipt", query,
		shared.PurposeResaleGoods, since.UTC(), string(shared.KindNotATransaction))
}

// LinkReceipt writes the receipt link only if the record has none yet
func (r *RecordRepository) LinkReceipt(ctx context.Context, messageID string, receiptID int64) error {
	query := `
		UPDATE payment_messages
		SET receipt_id = $1, version = version + 1, updated_at = NOW()
		WHERE message_id = $2 AND receipt_id IS NULL
	`

	result, err := r.querier.Exec(ctx, query, receiptID, messageID)
	if err != nil {
		r.logger.Error("Failed to link receipt", "message_id", messageID, "receipt_id", receiptID, "error", err)
		return fmt.Errorf("failed to link receipt: %w", err)
	}
	if result.RowsAffected() == 0 {
		return record.ErrReceiptAlreadyLinked{MessageID: messageID}
	}
	return nil
}

// LatestPaidAt returns the newest observed timestamp among ids starting with idPrefix
func (r *RecordRepository) LatestPaidAt(ctx context.Context, idPrefix string) (*time.Time, error) {
	query := `
		SELECT MAX(paid_at)
		FROM payment_messages
		WHERE message_id LIKE $1
	`

	var latest *time.Time
	if err := r.querier.QueryRow(ctx, query, escapeLike(idPrefix)+"%").Scan(&latest); err != nil {
		r.logger.Error("Failed to get latest paid_at", "prefix", idPrefix, "error", err)
		return nil, fmt.Errorf("failed to get latest paid_at: %w", err)
	}
	return latest, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
