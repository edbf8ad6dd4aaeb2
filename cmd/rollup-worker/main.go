package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetrollup/internal/amqp"
	"budgetrollup/internal/cli"
	"budgetrollup/internal/log"
	"budgetrollup/internal/services"
	"budgetrollup/internal/sheets"
	gsheet "budgetrollup/internal/sheets/google"
	memsheets "budgetrollup/internal/sheets/memory"
	"budgetrollup/internal/worker"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	cli.ExitOnError(logger, "Configuration validation failed", cfg.ValidateWorker())

	backendRes, err := cli.OpenBackend(context.Background(), cfg, logger)
	cli.ExitOnError(logger, "Failed to initialize backend", err)
	defer func() { _ = backendRes.Close() }()

	engine, err := cli.BuildEngine(cfg, backendRes.Store, logger)
	cli.ExitOnError(logger, "Failed to build rollup engine", err)

	var exporter sheets.RollupExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, gsheet.Credentials{
			File: cfg.GoogleServiceAccountFile,
			JSON: cfg.GoogleServiceAccountJSON,
		})
		cli.ExitOnError(logger, "Failed to initialize Google Sheets client", err)
		exporter = client
		logger.Info("Google Sheets exporter ready", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memsheets.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID, rollups are exported to memory only")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPEventQueue)
	cli.ExitOnError(logger, "Failed to initialize AMQP client", err)
	defer func() { _ = client.Close() }()

	svc := services.NewRollupService(engine, client, logger)
	w := worker.NewRollupWorker(svc, exporter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Starting rollup worker",
		"queue", cfg.AMQPRequestQueue,
		"backend", cfg.DataBackend,
		log.FieldOperation, log.OpStartup)
	if err := client.ConsumeRollupRequests(ctx, w.HandleRollupRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err, log.FieldOperation, log.OpConsume)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
