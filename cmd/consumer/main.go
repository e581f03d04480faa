package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/config"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/consumer"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/handler"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/live"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/logger"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/queue/sqs"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, cfg.Service.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	log.Info("Starting consumer service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("store", cfg.Store.Driver),
		zap.Int("workers", cfg.Consumer.Workers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize event store (creates tables if they don't exist)
	repo, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open event store", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error("Failed to close event store", zap.Error(err))
		}
	}()

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	broadcaster := live.NewBroadcaster(cfg.Consumer.SubscriberBuffer, registry)
	liveHandler := live.NewHandler(broadcaster, quartz.NewReal(), cfg.Consumer.LiveOriginPatterns, log)

	c := consumer.NewConsumer(cfg, sqsClient, sqsClient, repo, broadcaster, consumer.NewMetrics(registry), log)

	server := &http.Server{
		Addr:              ":" + cfg.Consumer.HealthCheckPort,
		Handler:           handler.NewConsumerHandler(repo, liveHandler, registry, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Consumer HTTP server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Consumer HTTP server error", zap.Error(err))
		}
	}()

	log.Info("Consumer starting")
	if err := c.Start(ctx); err != nil {
		log.Error("Consumer error", zap.Error(err))
	}

	log.Info("Shutting down consumer gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down consumer HTTP server", zap.Error(err))
	}
}
