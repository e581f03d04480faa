package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Aside runs computations through a cache. Cache failures never fail the
// computation: reads degrade to a miss and writes are dropped.
type Aside struct {
	cache   Cache
	timeout time.Duration
	log     *zap.Logger

	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
	errors *prometheus.CounterVec
}

// NewAside creates a cache-aside wrapper. Each Get/Set is bounded by timeout.
func NewAside(c Cache, timeout time.Duration, reg prometheus.Registerer, log *zap.Logger) *Aside {
	factory := promauto.With(reg)
	return &Aside{
		cache:   c,
		timeout: timeout,
		log:     log,
		hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Analytics results served from cache.",
		}, []string{"kind"}),
		misses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Analytics results computed because no usable cache entry existed.",
		}, []string{"kind"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache read, write or decode failures.",
		}, []string{"kind", "op"}),
	}
}

// Compute returns the cached value for key, or runs fn and stores its result
// for ttl. Errors from fn are returned and never cached.
func Compute[T any](ctx context.Context, a *Aside, kind, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if raw, ok := a.get(ctx, kind, key); ok {
		var cached T
		err := json.Unmarshal(raw, &cached)
		if err == nil {
			a.hits.WithLabelValues(kind).Inc()
			return cached, nil
		}
		a.errors.WithLabelValues(kind, "decode").Inc()
		a.log.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
	}
	a.misses.WithLabelValues(kind).Inc()

	result, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		a.errors.WithLabelValues(kind, "encode").Inc()
		a.log.Warn("Failed to encode result for cache", zap.String("key", key), zap.Error(err))
		return result, nil
	}

	a.set(ctx, kind, key, raw, ttl)
	return result, nil
}

func (a *Aside) get(ctx context.Context, kind, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.cache.Get(ctx, key)
	if err == nil {
		return raw, true
	}
	if !errors.Is(err, ErrMiss) {
		a.errors.WithLabelValues(kind, "get").Inc()
		a.log.Warn("Cache read failed, computing uncached", zap.String("key", key), zap.Error(err))
	}
	return nil, false
}

func (a *Aside) set(ctx context.Context, kind, key string, raw []byte, ttl time.Duration) {
	// detached from request cancellation
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	if err := a.cache.Set(ctx, key, raw, ttl); err != nil {
		a.errors.WithLabelValues(kind, "set").Inc()
		a.log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
