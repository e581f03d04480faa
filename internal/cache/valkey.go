package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/config"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

// Valkey stores entries in Valkey (or any Redis-protocol server)
type Valkey struct {
	client *redis.Client
	log    *zap.Logger
}

// NewValkey connects to the configured server. A failed ping is logged, not
// returned: the cache is optional and every call fails open.
func NewValkey(ctx context.Context, cfg *config.Valkey, log *zap.Logger) *Valkey {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout() * 5,
		ReadTimeout:  cfg.Timeout(),
		WriteTimeout: cfg.Timeout(),
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout()*5)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("Valkey unreachable, analytics will be computed uncached until it recovers",
			zap.String("addr", cfg.Addr()), zap.Error(err))
	} else {
		log.Info("Valkey connection established successfully", zap.String("addr", cfg.Addr()))
	}

	return &Valkey{client: client, log: log}
}

// NewValkeyFromClient wraps an existing client
func NewValkeyFromClient(client *redis.Client, log *zap.Logger) *Valkey {
	return &Valkey{client: client, log: log}
}

func (v *Valkey) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := v.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrCacheUnavailable, key, err)
	}
	return val, nil
}

func (v *Valkey) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := v.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrCacheUnavailable, key, err)
	}
	return nil
}

// Close releases the underlying connection pool
func (v *Valkey) Close() error {
	return v.client.Close()
}
