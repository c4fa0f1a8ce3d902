package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"caja/internal/amqp"
	"caja/internal/config"
	"caja/internal/log"
	"caja/internal/services"
	gsheet "caja/internal/sheets/google"
)

// caja-import is a one-shot job: it reads the configured spreadsheet range
// and publishes every row to the staging queue, then exits. Rows already
// staged are deduplicated downstream by tx_ref.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentSheets})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the importer")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the importer")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, 5*time.Minute)
	defer timeoutCancel()

	source, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetRange, gsheet.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	importer := services.NewImporter(source, amqpClient, "sheet")

	published, err := importer.Run(ctx)
	if err != nil {
		logger.Error("Import aborted", log.FieldError, err, "published", published)
		os.Exit(1)
	}
	logger.Info("Import finished", "published", published,
		"spreadsheet_id", cfg.GoogleSpreadsheetID, "range", cfg.GoogleSheetRange)
}
