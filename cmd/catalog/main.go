package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"auditflow/internal/audit"
	auditmetrics "auditflow/internal/audit/metrics"
	"auditflow/internal/catalog"
	"auditflow/internal/platform/config"
	"auditflow/internal/platform/httpserver"
	"auditflow/internal/platform/kafka"
	"auditflow/internal/platform/logger"
	"auditflow/internal/tracker"
	httpapi "auditflow/internal/transport/http"
)

// main wires the catalog side of the pipeline: unit-of-work tracking, change
// extraction, and the publish hand-off to Kafka. Business logic lives in the
// internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}

	store := catalog.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure catalog schema", "error", err)
		os.Exit(1)
	}

	if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.DLQTopic); err != nil {
		log.Error("failed to ensure kafka topics", "error", err)
		os.Exit(1)
	}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Error("failed to create kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	m := auditmetrics.New()
	recorder := audit.NewRecorder(
		audit.NewKafkaPublisher(producer, log),
		audit.WithLogger(log),
		audit.WithMetrics(m),
		audit.WithSystemActor(cfg.SystemActorID),
	)

	registry := tracker.NewRegistry()
	if err := catalog.Register(registry); err != nil {
		log.Error("failed to register auditable entities", "error", err)
		os.Exit(1)
	}

	service := catalog.NewService(store, registry, recorder, log)
	router := httpapi.NewRouter(httpapi.NewHandler(service, log))
	srv := httpserver.New(cfg.HTTPAddr, router)

	log.Info("starting catalog service",
		"addr", cfg.HTTPAddr,
		"topic", cfg.Kafka.Topic,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
