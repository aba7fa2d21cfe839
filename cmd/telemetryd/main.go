package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/wildfire-telemetry-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wildfire-telemetry-service/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/alert"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/auth"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/config"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/ingest"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/observability"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/state"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := storage.Open(dbCtx, cfg.DatabaseURL)
	dbCancel()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	history := storage.NewHistoryRepo(db, logger)
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = history.EnsureSchema(schemaCtx)
	schemaCancel()
	if err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Kafka fan-out is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var publisher ingest.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka fan-out enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka fan-out disabled")
	}

	verifier := auth.NewVerifier(cfg.DeviceSecrets)
	store := state.NewStore(state.DefaultHistoryLimit)
	alerts := alert.NewManager(alert.DefaultCapacity, nil)

	svc := ingest.New(verifier, store, alerts, history, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, cfg.HistoryQueryLimit, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("telemetry service started",
		"addr", cfg.HTTPAddr, "devices", len(cfg.DeviceSecrets))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	// Let in-flight history writes finish before closing their sinks.
	if err := svc.Drain(shutdownCtx); err != nil {
		logger.Error("pending writes not drained", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
