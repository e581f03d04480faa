package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/config"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository/clickhouse"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository/memory"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository/postgres"
)

// Open connects the event store selected by STORE_DRIVER and initializes its schema.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.EventRepository, error) {
	var (
		repo repository.EventRepository
		err  error
	)

	switch cfg.Store.Driver {
	case config.StoreClickHouse:
		var client *clickhouse.Client
		client, err = clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
		if err == nil {
			repo = clickhouse.NewRepository(client, log)
		}
	case config.StorePostgres:
		repo, err = postgres.Connect(ctx, cfg.Postgres.DSN, log)
	case config.StoreMemory:
		log.Warn("Using in-memory event store, data is lost on restart")
		repo = memory.NewRepository(log)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	if err := repo.InitSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to initialize %s schema: %w", cfg.Store.Driver, err)
	}

	return repo, nil
}
