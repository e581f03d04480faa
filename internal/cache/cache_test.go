package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if raw := args.Get(0); raw != nil {
		return raw.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

type result struct {
	Total int `json:"total"`
}

func newValkey(t *testing.T) (*Valkey, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewValkeyFromClient(client, zap.NewNop()), srv
}

func TestKey_Deterministic(t *testing.T) {
	type params struct {
		Event string            `json:"event"`
		Props map[string]string `json:"props"`
	}

	k1, err := Key("metrics", params{Event: "purchase", Props: map[string]string{"b": "2", "a": "1"}})
	require.NoError(t, err)
	k2, err := Key("metrics", params{Event: "purchase", Props: map[string]string{"a": "1", "b": "2"}})
	require.NoError(t, err)
	k3, err := Key("metrics", params{Event: "signup"})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Regexp(t, `^analytics:metrics:[0-9a-f]{64}$`, k1)
}

func TestCompute_MissThenHit(t *testing.T) {
	backend, srv := newValkey(t)
	reg := prometheus.NewRegistry()
	aside := NewAside(backend, time.Second, reg, zap.NewNop())

	calls := 0
	fn := func(context.Context) (result, error) {
		calls++
		return result{Total: 42}, nil
	}

	got, err := Compute(context.Background(), aside, "funnel", "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Total)

	got, err = Compute(context.Background(), aside, "funnel", "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Total)
	assert.Equal(t, 1, calls)

	stored, err := srv.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":42}`, stored)
	assert.Equal(t, time.Minute, srv.TTL("k"))

	assert.Equal(t, 1.0, testutil.ToFloat64(aside.hits.WithLabelValues("funnel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(aside.misses.WithLabelValues("funnel")))
}

func TestCompute_RecomputesAfterExpiry(t *testing.T) {
	backend, srv := newValkey(t)
	aside := NewAside(backend, time.Second, prometheus.NewRegistry(), zap.NewNop())

	calls := 0
	fn := func(context.Context) (result, error) {
		calls++
		return result{Total: calls}, nil
	}

	_, err := Compute(context.Background(), aside, "metrics", "k", 300*time.Second, fn)
	require.NoError(t, err)

	srv.FastForward(301 * time.Second)

	got, err := Compute(context.Background(), aside, "metrics", "k", 300*time.Second, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 2, calls)
}

func TestCompute_ErrorsAreNotCached(t *testing.T) {
	backend, srv := newValkey(t)
	aside := NewAside(backend, time.Second, prometheus.NewRegistry(), zap.NewNop())

	boom := errors.New("store down")
	_, err := Compute(context.Background(), aside, "retention", "k", time.Minute, func(context.Context) (result, error) {
		return result{}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, srv.Exists("k"))
}

func TestCompute_FailsOpenWhenCacheUnavailable(t *testing.T) {
	mockCache := new(MockCache)
	mockCache.On("Get", mock.Anything, "k").Return(nil, errors.New("connection refused"))
	mockCache.On("Set", mock.Anything, "k", mock.Anything, time.Minute).Return(errors.New("connection refused"))

	aside := NewAside(mockCache, 50*time.Millisecond, prometheus.NewRegistry(), zap.NewNop())

	got, err := Compute(context.Background(), aside, "funnel", "k", time.Minute, func(context.Context) (result, error) {
		return result{Total: 7}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, got.Total)
	assert.Equal(t, 1.0, testutil.ToFloat64(aside.errors.WithLabelValues("funnel", "get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(aside.errors.WithLabelValues("funnel", "set")))
	mockCache.AssertExpectations(t)
}

func TestCompute_CorruptEntryIsRecomputed(t *testing.T) {
	backend, srv := newValkey(t)
	require.NoError(t, srv.Set("k", "not-json"))
	aside := NewAside(backend, time.Second, prometheus.NewRegistry(), zap.NewNop())

	got, err := Compute(context.Background(), aside, "metrics", "k", time.Minute, func(context.Context) (result, error) {
		return result{Total: 3}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got.Total)
	stored, _ := srv.Get("k")
	assert.JSONEq(t, `{"total":3}`, stored)
}

func TestValkey_MissAndUnavailable(t *testing.T) {
	backend, srv := newValkey(t)

	_, err := backend.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)

	srv.Close()
	_, err = backend.Get(context.Background(), "absent")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}

	assert.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrMiss)
}
