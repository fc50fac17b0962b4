package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/payment-message-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// CorrectionRequestProducer publishes human corrections for the sweeper's correction listener
type CorrectionRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewCorrectionRequestProducer ensures the correction topic exists and opens a synchronous writer
func NewCorrectionRequestProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*CorrectionRequestProducer, error) {
	if cfg.CorrectionTopic == "" {
		return nil, fmt.Errorf("kafka correction topic is not configured")
	}

	if err := ensureTopic(cfg.Brokers, cfg.CorrectionTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure correction topic %s exists: %w", cfg.CorrectionTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.CorrectionTopic,
		Balancer:     &kafka.Hash{}, // corrections on one thread stay ordered
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return newCorrectionRequestProducer(logger, writer, cfg.CorrectionTopic), nil
}

func newCorrectionRequestProducer(logger *slog.Logger, writer KafkaWriter, topic string) *CorrectionRequestProducer {
	return &CorrectionRequestProducer{logger: logger, writer: writer, topic: topic}
}

// Publish writes value as JSON keyed by key
func (p *CorrectionRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal correction request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish correction request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish correction request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published correction request", "topic", p.topic, "key", key)
	return nil
}

func (p *CorrectionRequestProducer) Close() error {
	p.logger.Info("Closing correction request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
