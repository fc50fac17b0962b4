package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/payment-message-ledger/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB is the audit store. Postgres keeps the current classification of every
// record; Mongo keeps each classification that was ever accepted for it.
type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoDB connects to the audit database and fails fast when the primary is unreachable
func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.Timeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("audit store %s is unreachable: %w", cfg.Database, err)
	}

	logger.Info("Connected to audit store", "database", cfg.Database)

	return &MongoDB{
		logger:   logger,
		client:   client,
		database: client.Database(cfg.Database),
	}, nil
}

func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// EnsureIndex creates the index on collection if it does not exist yet.
// Creating an index that already exists with the same keys and options is a no-op.
func (m *MongoDB) EnsureIndex(ctx context.Context, collection string, index mongo.IndexModel) error {
	name, err := m.Collection(collection).Indexes().CreateOne(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to ensure index on %s: %w", collection, err)
	}
	m.logger.Debug("Index ensured", "collection", collection, "index", name)
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from audit store: %w", err)
	}
	m.logger.Info("Closed audit store connection")
	return nil
}
