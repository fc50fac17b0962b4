package shared

import "time"

// CorrectionRequest defines a Kafka message carrying a human reply to an inference report
type CorrectionRequest struct {
	Channel        string    `json:"channel"`
	ThreadTS       string    `json:"thread_ts"`
	OriginalText   string    `json:"original_text"`
	CorrectionText string    `json:"correction_text"`
	User           string    `json:"user,omitempty"`
	CorrelationID  string    `json:"correlation_id"`
	ReceivedAt     time.Time `json:"received_at"`
}
