package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kroma-labs/peardb-go/example/peardb/internal/config"
	"github.com/kroma-labs/peardb-go/example/peardb/internal/database"
	"github.com/kroma-labs/peardb-go/example/peardb/internal/telemetry"

	"go.opentelemetry.io/otel"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// 1. Setup OpenTelemetry (Tracing + Metrics)
	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to setup OTel")
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("telemetry shutdown")
		}
	}()

	// 2. Start Prometheus Metrics Server
	metricsServer := &http.Server{Addr: config.MetricsPort, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", config.MetricsPort).Msg("starting Prometheus metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	// 3. Connect through peardb
	db, err := database.New(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	tracer := otel.Tracer("example-app")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := db.CreateTable(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to create table")
	}

	ticker := time.NewTicker(time.Duration(config.OperationInterval) * time.Second)
	defer ticker.Stop()

	fmt.Println("peardb example app started")
	fmt.Println("Prometheus metrics: http://localhost:2112/metrics")
	fmt.Println("Press Ctrl+C to stop...")

	var tick int64
	for {
		select {
		case <-ticker.C:
			tick++
			ctx, span := tracer.Start(ctx, "legacy-operations")

			if err := db.InsertUsers(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to insert users")
			}
			if err := db.QueryUsers(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to query users")
			}
			if _, err := db.GetUser(ctx, "Alice"); err != nil {
				logger.Error().Err(err).Msg("failed to get user")
			}
			if emails, err := db.EmailsByName(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to map emails")
			} else {
				logger.Info().Int("count", len(emails)).Msg("mapped emails via getAssoc")
			}
			if err := db.UpdateEmailWithTransaction(ctx, 1, fmt.Sprintf("alice+%d@example.com", tick)); err != nil {
				logger.Error().Err(err).Msg("failed transaction")
			}

			span.End()

		case <-sigChan:
			fmt.Println("Shutting down gracefully...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown error")
			}
			return
		}
	}
}
