package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetrollup/internal/amqp"
	"budgetrollup/internal/cli"
	apphttp "budgetrollup/internal/http"
	"budgetrollup/internal/log"
	"budgetrollup/internal/services"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cli.ExitOnError(logger, "Configuration validation failed", cfg.Validate())

	backendRes, err := cli.OpenBackend(context.Background(), cfg, logger)
	cli.ExitOnError(logger, "Failed to initialize backend", err)
	defer func() { _ = backendRes.Close() }()

	engine, err := cli.BuildEngine(cfg, backendRes.Store, logger)
	cli.ExitOnError(logger, "Failed to build rollup engine", err)

	// AMQP is optional for the API: without it no rollup.computed events
	// are published.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPEventQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, rollup events disabled", log.FieldError, err)
		} else {
			defer func() { _ = client.Close() }()
			publisher = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPEventQueue)
		}
	}

	svc := services.NewRollupService(engine, publisher, logger)
	srv := apphttp.NewServer(":"+cfg.Port, svc, backendRes.Store, apphttp.Options{
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting budget API",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"key_rules", cfg.KeyRules,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
