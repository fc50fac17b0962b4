package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/payment-message-ledger/internal/config"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// NotificationProducer hands chat messages to the relay that posts them.
// Each write is synchronous so the caller learns about delivery failures.
type NotificationProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
	now    func() time.Time
}

func NewNotificationProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*NotificationProducer, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("kafka notification topic is not configured")
	}

	if err := ensureTopic(cfg.Brokers, cfg.NotificationTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure notification topic %s exists: %w", cfg.NotificationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.NotificationTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return newNotificationProducer(logger, writer, cfg.NotificationTopic), nil
}

func newNotificationProducer(logger *slog.Logger, writer KafkaWriter, topic string) *NotificationProducer {
	return &NotificationProducer{logger: logger, writer: writer, topic: topic, now: time.Now}
}

// Send posts text to a channel
func (p *NotificationProducer) Send(ctx context.Context, channel, text string) error {
	return p.publish(ctx, shared.Notification{Channel: channel, Text: text})
}

// Reply posts text inside an existing thread
func (p *NotificationProducer) Reply(ctx context.Context, channel, threadTS, text string) error {
	return p.publish(ctx, shared.Notification{Channel: channel, ThreadTS: threadTS, Text: text})
}

func (p *NotificationProducer) publish(ctx context.Context, n shared.Notification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = p.now().UTC()
	n.CorrelationID = shared.CorrelationIDFromContext(ctx)

	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// keyed by channel so messages for one channel keep their order
	msg := kafka.Message{Key: []byte(n.Channel), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published notification", "topic", p.topic, "channel", n.Channel, "thread_ts", n.ThreadTS)
	return nil
}

func (p *NotificationProducer) Close() error {
	p.logger.Info("Closing notification producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
