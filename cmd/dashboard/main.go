package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/drug-kpi-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/config"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/dashboard"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/couchcryptid/drug-kpi-dashboard/internal/observability"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.TracingEnabled, cfg.TracingEndpoint, logger)
	if err != nil {
		logger.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}

	// Increase alerts are feature-flagged via ALERTS_ENABLED / KAFKA_BROKERS.
	var (
		alerts dashboard.AlertLoader
		writer *kafkaadapter.Writer
	)
	if cfg.AlertsEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		alerts = writer
		logger.Info("increase alerts enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("increase alerts disabled")
	}

	source := dashboard.NewFileSource(cfg.DataDir)
	svc := dashboard.New(source, alerts, logger, metrics, domain.Year(cfg.BaselineYear), domain.Year(cfg.TargetYear))

	watchdog := dashboard.NewWatchdog(source, logger, metrics)
	schedule := cfg.ValidateSchedule
	if schedule == config.ScheduleOff {
		schedule = ""
	}
	if err := watchdog.Start(ctx, schedule); err != nil {
		logger.Error("failed to start data watchdog", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, watchdog, svc, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	logger.Info("dashboard started", "data_dir", cfg.DataDir, "baseline", cfg.BaselineYear, "target", cfg.TargetYear)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := watchdog.Stop(shutdownCtx); err != nil {
		logger.Error("data watchdog stop error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
