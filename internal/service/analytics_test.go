package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/cache"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository/memory"
)

const testTTL = 5 * time.Minute

type analyticsFixture struct {
	svc   *AnalyticsService
	repo  *memory.Repository
	clock *quartz.Mock
	redis *miniredis.Miniredis
}

func newAnalyticsFixture(t *testing.T) *analyticsFixture {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zap.NewNop()
	aside := cache.NewAside(cache.NewValkeyFromClient(client, log), time.Second, prometheus.NewRegistry(), log)

	clock := quartz.NewMock(t)
	clock.Set(testNow)

	repo := memory.NewRepository(log)
	return &analyticsFixture{
		svc:   NewAnalyticsService(repo, aside, clock, testTTL, 365, log),
		repo:  repo,
		clock: clock,
		redis: srv,
	}
}

func (f *analyticsFixture) insert(t *testing.T, user, name string, ts time.Time, props domain.Properties) {
	t.Helper()
	require.NoError(t, f.repo.InsertEvent(context.Background(), &domain.Event{
		EventID:    user + "-" + name + "-" + ts.Format(time.RFC3339),
		OrgID:      testTenant.OrgID,
		ProjectID:  testTenant.ProjectID,
		UserID:     user,
		EventName:  name,
		Timestamp:  ts,
		Properties: props,
		ReceivedAt: ts,
	}))
}

func TestAnalyticsService_FunnelIsCached(t *testing.T) {
	f := newAnalyticsFixture(t)
	base := testNow.Add(-48 * time.Hour)
	f.insert(t, "U1", "signup", base, nil)
	f.insert(t, "U1", "purchase", base.Add(time.Hour), nil)

	req := domain.FunnelRequest{Tenant: testTenant, Steps: []string{"signup", "purchase"}}

	first, err := f.svc.Funnel(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalUsers)

	f.insert(t, "U2", "signup", base, nil)

	cached, err := f.svc.Funnel(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	key, err := cache.Key(kindFunnel, req)
	require.NoError(t, err)
	assert.True(t, f.redis.Exists(key))
	assert.Equal(t, testTTL, f.redis.TTL(key))

	f.redis.FastForward(testTTL + time.Second)

	fresh, err := f.svc.Funnel(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalUsers)
}

func TestAnalyticsService_InvalidQueriesAreNotCached(t *testing.T) {
	f := newAnalyticsFixture(t)

	_, err := f.svc.Funnel(context.Background(), domain.FunnelRequest{Tenant: testTenant})
	assert.ErrorIs(t, err, domain.ErrQuery)

	_, err = f.svc.Retention(context.Background(), domain.RetentionQuery{Tenant: testTenant, CohortEvent: "signup"})
	assert.ErrorIs(t, err, domain.ErrQuery)

	_, err = f.svc.Metrics(context.Background(), domain.MetricsQuery{Tenant: testTenant, EventName: "x", Interval: "hourly"})
	assert.ErrorIs(t, err, domain.ErrQuery)

	assert.Empty(t, f.redis.Keys())
}

func TestAnalyticsService_RetentionKeyFollowsCurrentDay(t *testing.T) {
	f := newAnalyticsFixture(t)
	today := domain.TruncateDay(testNow)
	f.insert(t, "U1", "signup", today.Add(-23*time.Hour), nil)

	q := domain.RetentionQuery{Tenant: testTenant, CohortEvent: "signup", WindowDays: 2}

	buckets, err := f.svc.Retention(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, 1, buckets[0].Count)

	f.insert(t, "U2", "signup", today.Add(-22*time.Hour), nil)

	buckets, err = f.svc.Retention(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, buckets[0].Count, "same day is served from cache")

	f.clock.Set(testNow.Add(24 * time.Hour))

	buckets, err = f.svc.Retention(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, []string{"U1", "U2"}, buckets[0].Users)
}

func TestAnalyticsService_Metrics(t *testing.T) {
	f := newAnalyticsFixture(t)
	d1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	f.insert(t, "U1", "purchase", d1, domain.Properties{"device": "web"})
	f.insert(t, "U2", "purchase", d1.Add(time.Hour), domain.Properties{"device": "mobile"})
	f.insert(t, "U1", "purchase", d2, domain.Properties{"device": "web"})

	points, err := f.svc.Metrics(context.Background(), domain.MetricsQuery{
		Tenant:     testTenant,
		EventName:  "purchase",
		Interval:   domain.IntervalDaily,
		Properties: map[string]string{"device": "web"},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.MetricPoint{
		{Date: "2024-01-01", Count: 1},
		{Date: "2024-01-02", Count: 1},
	}, points)
}

func TestAnalyticsService_Journey(t *testing.T) {
	f := newAnalyticsFixture(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.insert(t, "U1", "purchase", base.Add(2*time.Hour), domain.Properties{"amount": 10.0})
	f.insert(t, "U1", "signup", base, nil)
	f.insert(t, "U2", "signup", base, nil)
	f.insert(t, "U1", "login", base.Add(time.Hour), nil)

	journey, err := f.svc.Journey(context.Background(), domain.JourneyQuery{Tenant: testTenant, UserID: "U1"})
	require.NoError(t, err)
	require.Len(t, journey, 3)
	assert.Equal(t, "signup", journey[0].EventName)
	assert.Equal(t, "login", journey[1].EventName)
	assert.Equal(t, "purchase", journey[2].EventName)
	assert.Equal(t, domain.Properties{"amount": 10.0}, journey[2].Properties)

	end := base.Add(90 * time.Minute)
	journey, err = f.svc.Journey(context.Background(), domain.JourneyQuery{
		Tenant: testTenant,
		UserID: "U1",
		Range:  domain.DateRange{End: &end},
	})
	require.NoError(t, err)
	assert.Len(t, journey, 2)

	journey, err = f.svc.Journey(context.Background(), domain.JourneyQuery{Tenant: testTenant, UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, journey)
	assert.Empty(t, journey)

	_, err = f.svc.Journey(context.Background(), domain.JourneyQuery{Tenant: testTenant})
	assert.ErrorIs(t, err, domain.ErrQuery)

	assert.Empty(t, f.redis.Keys(), "journeys are not cached")
}

type unreachableRepo struct {
	*memory.Repository
}

func (unreachableRepo) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestAnalyticsService_Ready(t *testing.T) {
	f := newAnalyticsFixture(t)
	assert.NoError(t, f.svc.Ready(context.Background()))

	log := zap.NewNop()
	down := NewAnalyticsService(unreachableRepo{memory.NewRepository(log)},
		cache.NewAside(cache.Noop{}, time.Second, prometheus.NewRegistry(), log),
		quartz.NewReal(), testTTL, 365, log)

	err := down.Ready(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
