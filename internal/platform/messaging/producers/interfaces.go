package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes a JSON-encoded value keyed for partition ordering.
// The gateway publishes corrections through it, keyed by chat thread.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks a consumed payload that can never be applied, with the reason
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the part of kafka.Writer the producers use; tests substitute a mock
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ KafkaWriter         = (*kafka.Writer)(nil)
	_ MessagePublisher    = (*CorrectionRequestProducer)(nil)
	_ DeadLetterPublisher = (*DLQProducer)(nil)
)
