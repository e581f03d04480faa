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

	"github.com/BarkinBalci/behavioral-analytics-service/docs"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/auth"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/cache"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/config"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/handler"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/logger"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/queue/sqs"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/service"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Behavioral Analytics Service API
// @version 1.0
// @description API for collecting behavioral events and querying funnels, retention and event metrics
// @host localhost:8080
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
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

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort),
		zap.String("store", cfg.Store.Driver))

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	keys, err := auth.NewKeyStore(cfg.Service.APIKeys)
	if err != nil {
		log.Fatal("Failed to load API keys", zap.Error(err))
	}

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Initialize event store
	repo, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open event store", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error("Failed to close event store", zap.Error(err))
		}
	}()

	// Initialize result cache
	var backend cache.Cache = cache.Noop{}
	if cfg.Valkey.Enabled {
		valkey := cache.NewValkey(ctx, &cfg.Valkey, log)
		defer func() {
			if err := valkey.Close(); err != nil {
				log.Error("Failed to close Valkey client", zap.Error(err))
			}
		}()
		backend = valkey
	}
	aside := cache.NewAside(backend, cfg.Valkey.Timeout(), registry, log)

	clock := quartz.NewReal()
	eventService := service.NewEventService(sqsClient, clock, registry, log)
	analyticsService := service.NewAnalyticsService(repo, aside, clock,
		cfg.Analytics.CacheTTL(), cfg.Analytics.MaxRetentionDays, log)

	h := handler.NewHandler(eventService, analyticsService, keys, registry, handler.Options{
		RateLimit:    cfg.Service.RateLimit,
		RateWindow:   cfg.Service.RateWindow,
		MaxBodyBytes: cfg.Service.MaxBodyBytes,
	}, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.APIPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API service gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down API server", zap.Error(err))
	}
}
