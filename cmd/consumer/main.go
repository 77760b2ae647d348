package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	auditconsumer "auditflow/internal/audit/consumer"
	auditmetrics "auditflow/internal/audit/metrics"
	auditpg "auditflow/internal/audit/store/postgres"
	"auditflow/internal/platform/config"
	"auditflow/internal/platform/httpserver"
	"auditflow/internal/platform/kafka"
	"auditflow/internal/platform/logger"
	"auditflow/internal/platform/postgres"
	"auditflow/internal/platform/redis"
)

// main wires the consumer side of the pipeline: the Kafka group loop, message
// validation, and the audit ledger writer.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := auditpg.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure audit schema", "error", err)
		os.Exit(1)
	}

	if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.DLQTopic); err != nil {
		log.Error("failed to ensure kafka topics", "error", err)
		os.Exit(1)
	}

	m := auditmetrics.New()
	handlerOpts := []auditconsumer.HandlerOption{auditconsumer.WithMetrics(m)}
	redisClient, err := redis.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		handlerOpts = append(handlerOpts,
			auditconsumer.WithDeduper(auditconsumer.NewRedisDeduper(redisClient.Client, 24*time.Hour)))
	}
	handler := auditconsumer.NewHandler(store, log, handlerOpts...)

	deadLetter, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DLQTopic)
	if err != nil {
		log.Error("failed to create dead-letter producer", "error", err)
		os.Exit(1)
	}
	defer deadLetter.Close()

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		GroupID:     cfg.Kafka.GroupID,
		MaxAttempts: cfg.Kafka.MaxAttempts,
	}, handler, deadLetter, log)
	if err != nil {
		log.Error("failed to create kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	srv := httpserver.New(cfg.HTTPAddr, router)

	log.Info("starting audit consumer",
		"addr", cfg.HTTPAddr,
		"topic", cfg.Kafka.Topic,
		"group", cfg.Kafka.GroupID,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return consumer.Run(groupCtx)
	})
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer exited with error", "error", err)
		os.Exit(1)
	}
}
