package shared

import "time"

// Notification defines a Kafka message for the chat relay.
// ThreadTS is set only for replies inside an existing thread.
type Notification struct {
	ID            string    `json:"id"`
	Channel       string    `json:"channel"`
	ThreadTS      string    `json:"thread_ts,omitempty"`
	Text          string    `json:"text"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
