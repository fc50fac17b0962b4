// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for the sweeper and the API gateway,
// including database connections, message transport, classifier access and the
// thresholds that drive the reconciliation pipeline.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during
// application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	LLM         LLMConfig
	Channels    ChannelsConfig
	Schedule    ScheduleConfig
	Pipeline    PipelineConfig
	Dedup       DedupConfig
	Staleness   StalenessConfig
	Senders     SenderDirectory
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	NotificationTopic string // Outbound chat messages
	CorrectionTopic   string // Inbound human corrections
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// LLMConfig contains the classifier model settings
type LLMConfig struct {
	APIKey      string
	Model       string
	CallTimeout time.Duration // Deadline applied to every classifier call
}

// ChannelsConfig names the chat channels the pipeline reports to
type ChannelsConfig struct {
	Account       string // Inference reports; corrections arrive as thread replies here
	Receipt       string // Unlinked-receipt reports
	ErrorLog      string // Stack traces from failed sweeps and daily checks
	NotifyTimeout time.Duration
}

// ScheduleConfig drives the periodic sweep and the daily check
type ScheduleConfig struct {
	SweepInterval       time.Duration
	SweepTimeout        time.Duration
	DailyCheckSchedule  string // cron expression
	TimeZone            string
	SweepReportUnlinked bool // Run the unlinked reporter at the end of each sweep; the daily check always runs it
}

// PipelineConfig holds the cutoffs and thresholds of the reconciliation stages
type PipelineConfig struct {
	ClassificationCutoff            time.Time
	LinkerCutoff                    time.Time
	UnlinkedReportCutoff            time.Time
	LinkerMaxDayDiff                int
	InferenceBatchSize              int
	InferenceContextCap             int
	InferenceMinConfidence          float64
	InferenceSimilarityThreshold    float64
	CancellationSimilarityThreshold float64
}

// DedupConfig is the signature of a message ingested twice by a known upstream defect
type DedupConfig struct {
	IDPrefix     string
	SenderNumber string
	Marker       string
}

// StalenessConfig drives the daily upload staleness check
type StalenessConfig struct {
	Threshold time.Duration
	Channels  []StalenessChannel
}

// StalenessChannel pairs an ingestion-channel id prefix with the person to remind
type StalenessChannel struct {
	Prefix  string
	Mention string
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.NotificationTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_NOTIFICATION_TOPIC is required")
	}
	if c.Kafka.CorrectionTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_CORRECTION_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}

	// Validate LLM config
	if c.LLM.Model == "" {
		validationErrors = append(validationErrors, "GEMINI_MODEL is required")
	}
	if c.LLM.CallTimeout <= 0 {
		validationErrors = append(validationErrors, "LLM_CALL_TIMEOUT must be greater than 0")
	}

	// Validate channels
	if c.Channels.Account == "" {
		validationErrors = append(validationErrors, "CHANNEL_ACCOUNT is required")
	}
	if c.Channels.Receipt == "" {
		validationErrors = append(validationErrors, "CHANNEL_RECEIPT is required")
	}
	if c.Channels.ErrorLog == "" {
		validationErrors = append(validationErrors, "CHANNEL_ERROR_LOG is required")
	}
	if c.Channels.NotifyTimeout <= 0 {
		validationErrors = append(validationErrors, "NOTIFY_TIMEOUT must be greater than 0")
	}

	// Validate schedule
	if c.Schedule.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "SWEEP_INTERVAL must be greater than 0")
	}
	if c.Schedule.SweepTimeout <= 0 {
		validationErrors = append(validationErrors, "SWEEP_TIMEOUT must be greater than 0")
	}
	if c.Schedule.DailyCheckSchedule == "" {
		validationErrors = append(validationErrors, "DAILY_CHECK_SCHEDULE is required")
	}
	if _, err := time.LoadLocation(c.Schedule.TimeZone); err != nil {
		validationErrors = append(validationErrors, fmt.Sprintf("SCHEDULER_TIMEZONE is invalid: %v", err))
	}

	// Validate pipeline thresholds
	if c.Pipeline.InferenceBatchSize <= 0 {
		validationErrors = append(validationErrors, "INFERENCE_BATCH_SIZE must be greater than 0")
	}
	if c.Pipeline.InferenceContextCap <= 0 {
		validationErrors = append(validationErrors, "INFERENCE_CONTEXT_CAP must be greater than 0")
	}
	if c.Pipeline.InferenceMinConfidence < 0 || c.Pipeline.InferenceMinConfidence > 1 {
		validationErrors = append(validationErrors, "INFERENCE_MIN_CONFIDENCE must be within [0, 1]")
	}
	if c.Pipeline.InferenceSimilarityThreshold < 0 || c.Pipeline.InferenceSimilarityThreshold > 100 {
		validationErrors = append(validationErrors, "INFERENCE_SIMILARITY_THRESHOLD must be within [0, 100]")
	}
	if c.Pipeline.CancellationSimilarityThreshold < 0 || c.Pipeline.CancellationSimilarityThreshold > 100 {
		validationErrors = append(validationErrors, "CANCELLATION_SIMILARITY_THRESHOLD must be within [0, 100]")
	}
	// A payment reported as unlinked must still be one the linker looks at
	if c.Pipeline.UnlinkedReportCutoff.Before(c.Pipeline.LinkerCutoff) {
		validationErrors = append(validationErrors, "UNLINKED_REPORT_CUTOFF must not be before LINKER_CUTOFF")
	}
	if c.Pipeline.LinkerMaxDayDiff < 0 {
		validationErrors = append(validationErrors, "LINKER_MAX_DAY_DIFF must not be negative")
	}

	// Validate dedup signature; an empty field would widen the filter to unrelated records
	if c.Dedup.IDPrefix == "" || c.Dedup.SenderNumber == "" || c.Dedup.Marker == "" {
		validationErrors = append(validationErrors, "DEDUP_ID_PREFIX, DEDUP_SENDER and DEDUP_MARKER are required")
	}

	if c.Staleness.Threshold <= 0 {
		validationErrors = append(validationErrors, "STALENESS_THRESHOLD must be greater than 0")
	}

	if err := c.Senders.validate(); err != nil {
		validationErrors = append(validationErrors, err.Error())
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
