package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/payment-message-ledger/internal/classifier"
	"github.com/payment-message-ledger/internal/config"
	"github.com/payment-message-ledger/internal/data/mongo"
	"github.com/payment-message-ledger/internal/data/postgres"
	"github.com/payment-message-ledger/internal/logger"
	"github.com/payment-message-ledger/internal/platform/messaging/consumers"
	"github.com/payment-message-ledger/internal/platform/messaging/producers"
	"github.com/payment-message-ledger/internal/platform/persistence"
	"github.com/payment-message-ledger/internal/sweeper/components"
	"github.com/payment-message-ledger/internal/sweeper/consumer"
	"github.com/payment-message-ledger/internal/sweeper/scheduler"
	"github.com/payment-message-ledger/internal/sweeper/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("sweeper")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Sweeper",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	location, err := time.LoadLocation(cfg.Schedule.TimeZone)
	if err != nil {
		log.Error("Failed to load scheduler time zone", "time_zone", cfg.Schedule.TimeZone, "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	if err := mongoDB.EnsureIndex(appCtx, mongo.AuditCollectionName, mongo.AuditIndex); err != nil {
		log.Error("Failed to ensure audit index", "error", err)
		os.Exit(1)
	}

	genaiClient, err := classifier.NewGeminiClient(appCtx, &cfg.LLM)
	if err != nil {
		log.Error("Failed to initialize classifier client", "error", err)
		os.Exit(1)
	}

	notificationProducer, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification producer", "error", err)
		os.Exit(1)
	}

	// dlqProducer is nil when no DLQ topic is configured
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	workerPool, err := service.NewWorkerPool(service.WorkerPoolConfig{Size: cfg.Pipeline.InferenceBatchSize}, log.With("component", "worker_pool"))
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	deps := components.Dependencies{
		DB:                postgresDB,
		Records:           postgres.NewRecordRepository(log, postgresDB),
		Receipts:          postgres.NewReceiptRepository(log, postgresDB),
		Audit:             mongo.NewAuditRepository(log, mongoDB.Database()),
		MessageClassifier: classifier.NewMessageClassifier(genaiClient.Models, &cfg.LLM, log.With("component", "message_classifier")),
		AccountClassifier: classifier.NewAccountClassifier(genaiClient.Models, &cfg.LLM, log.With("component", "account_classifier")),
		Notifier:          notificationProducer,
		Workers:           workerPool,
	}

	sweepService, err := components.CreateSweepService(deps, cfg, log)
	if err != nil {
		log.Error("Failed to build sweep", "error", err)
		os.Exit(1)
	}
	dailyCheckService, err := components.CreateDailyCheckService(deps, cfg, log)
	if err != nil {
		log.Error("Failed to build daily check", "error", err)
		os.Exit(1)
	}
	correctionApplier := components.CreateCorrectionApplier(deps, cfg, log)

	sweepScheduler := scheduler.NewSweepScheduler(sweepService, cfg.Schedule.SweepInterval, cfg.Schedule.SweepTimeout, log.With("component", "sweep_scheduler"))
	dailyScheduler, err := scheduler.NewDailyScheduler(cfg.Schedule.DailyCheckSchedule, location, dailyCheckService, cfg.Schedule.SweepTimeout, log.With("component", "daily_scheduler"))
	if err != nil {
		log.Error("Failed to schedule daily check", "error", err)
		os.Exit(1)
	}

	correctionConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.CorrectionTopic)
	correctionHandler := consumer.NewCorrectionEventHandler(log, correctionApplier, deadLetters)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting correction consumer",
			"topic", cfg.Kafka.CorrectionTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := correctionConsumer.Subscribe(appCtx, correctionHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting sweep scheduler",
			"interval", cfg.Schedule.SweepInterval.String(),
			"stages", sweepService.StageNames(),
		)
		sweepScheduler.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting daily check scheduler",
			"schedule", cfg.Schedule.DailyCheckSchedule,
			"time_zone", location.String(),
		)
		dailyScheduler.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	log.Info("Shutting down worker pool", "running_workers", workerPool.Running())
	workerPool.Shutdown()

	var shutdownErr error
	if err := correctionConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		shutdownErr = err
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
			shutdownErr = err
		}
	}
	if err := notificationProducer.Close(); err != nil {
		log.Error("Error closing notification producer", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serviceErr != nil {
		log.Error("Sweeper shutdown with errors", "error", serviceErr)
	}
	if shutdownErr != nil {
		log.Error("Sweeper shutdown completed with errors")
	} else {
		log.Info("Sweeper shutdown completed successfully")
	}
}
