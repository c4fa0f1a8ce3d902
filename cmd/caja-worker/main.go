package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"caja/internal/amqp"
	"caja/internal/backend"
	"caja/internal/config"
	"caja/internal/log"
	"caja/internal/services"
)

// caja-worker consumes staged transactions from the queue and lands them
// in the review queue, where they wait for approval.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting caja-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(log.ComponentStorage).Logger)
	result, err := factory.CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", backendConfig.Type)
		os.Exit(1)
	}
	defer result.Cleanup()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	staging := services.NewStagingService(result.Store, cfg.WhatsAppDefaultAccount)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumeDone := make(chan error, 1)
	go func() {
		consumeDone <- amqpClient.ConsumeStagedTransactions(ctx, func(msg *amqp.StagedTransactionMessage) error {
			stagedID, err := staging.Ingest(ctx, msg)
			if err != nil {
				return err
			}
			logger.Info("Staged transaction ingested",
				log.FieldStagedID, stagedID,
				log.FieldTxRef, msg.TxRef,
				log.FieldSource, msg.Source)
			return nil
		})
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
		// Give in-flight deliveries a moment to ack before closing the channel.
		select {
		case <-consumeDone:
		case <-time.After(5 * time.Second):
			logger.Warn("Shutdown timeout reached")
		}
	case err := <-consumeDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}
	logger.Info("Worker stopped")
}
