package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/payment-message-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the classification audit collection in MongoDB
	AuditCollectionName = "classification_audit"

	defaultAuditLimit = 50
)

var ErrEmptyMessageID = errors.New("message id cannot be empty")

// AuditIndex serves ListByMessageID: one record's history, newest first
var AuditIndex = mongo.IndexModel{
	Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "created_at", Value: -1}},
	Options: options.Index().SetName("message_id_created_at"),
}

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one accepted classification. Entries are never updated.
func (r *AuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	if entry.MessageID == "" {
		return ErrEmptyMessageID
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	collection := r.db.Collection(AuditCollectionName)
	if _, err := collection.InsertOne(ctx, entry); err != nil {
		r.logger.Error("Failed to append audit entry",
			"message_id", entry.MessageID,
			"source", string(entry.Source),
			"error", err)
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// ListByMessageID returns the newest entries for a record first
func (r *AuditRepository) ListByMessageID(ctx context.Context, messageID string, limit int) ([]*audit.Entry, error) {
	if messageID == "" {
		return nil, ErrEmptyMessageID
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"message_id": messageID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries",
			"message_id", messageID,
			"error", err)
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*audit.Entry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"message_id", messageID,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}
