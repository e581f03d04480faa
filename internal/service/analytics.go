package service

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/analytics"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/cache"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

const (
	kindFunnel    = "funnel"
	kindRetention = "retention"
	kindMetrics   = "metrics"
)

// AnalyticsService answers analytics queries through the result cache
type AnalyticsService struct {
	repository repository.EventRepository
	funnels    *analytics.FunnelEngine
	retention  *analytics.RetentionEngine
	metrics    *analytics.MetricsEngine
	cache      *cache.Aside
	ttl        time.Duration
	clock      quartz.Clock
	log        *zap.Logger
}

// NewAnalyticsService creates a new analytics service. Results are cached for ttl.
func NewAnalyticsService(repo repository.EventRepository, aside *cache.Aside, clock quartz.Clock, ttl time.Duration, maxRetentionDays int, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		repository: repo,
		funnels:    analytics.NewFunnelEngine(repo, log),
		retention:  analytics.NewRetentionEngine(repo, clock, maxRetentionDays, log),
		metrics:    analytics.NewMetricsEngine(repo, log),
		cache:      aside,
		ttl:        ttl,
		clock:      clock,
		log:        log,
	}
}

// Funnel computes a conversion funnel
func (s *AnalyticsService) Funnel(ctx context.Context, req domain.FunnelRequest) (*domain.FunnelResult, error) {
	if err := s.funnels.Validate(req); err != nil {
		return nil, err
	}

	key, err := cache.Key(kindFunnel, req)
	if err != nil {
		return nil, err
	}

	s.log.Info("Querying funnel",
		zap.String("org_id", req.Tenant.OrgID),
		zap.String("project_id", req.Tenant.ProjectID),
		zap.Strings("steps", req.Steps))

	return cache.Compute(ctx, s.cache, kindFunnel, key, s.ttl, func(ctx context.Context) (*domain.FunnelResult, error) {
		return s.funnels.Compute(ctx, req)
	})
}

// Retention computes day-by-day cohort retention. The window is anchored to
// the current UTC day, so cached results never outlive the day they were computed on.
func (s *AnalyticsService) Retention(ctx context.Context, q domain.RetentionQuery) ([]domain.RetentionBucket, error) {
	if err := s.retention.Validate(q); err != nil {
		return nil, err
	}

	key, err := cache.Key(kindRetention, struct {
		Query domain.RetentionQuery `json:"query"`
		Day   string                `json:"day"`
	}{q, s.clock.Now().UTC().Format(time.DateOnly)})
	if err != nil {
		return nil, err
	}

	s.log.Info("Querying retention",
		zap.String("org_id", q.Tenant.OrgID),
		zap.String("project_id", q.Tenant.ProjectID),
		zap.String("cohort", q.CohortEvent),
		zap.Int("days", q.WindowDays))

	return cache.Compute(ctx, s.cache, kindRetention, key, s.ttl, func(ctx context.Context) ([]domain.RetentionBucket, error) {
		return s.retention.Compute(ctx, q)
	})
}

// Metrics computes time-bucketed event counts
func (s *AnalyticsService) Metrics(ctx context.Context, q domain.MetricsQuery) ([]domain.MetricPoint, error) {
	if err := s.metrics.Validate(q); err != nil {
		return nil, err
	}

	key, err := cache.Key(kindMetrics, q)
	if err != nil {
		return nil, err
	}

	s.log.Info("Querying metrics",
		zap.String("org_id", q.Tenant.OrgID),
		zap.String("project_id", q.Tenant.ProjectID),
		zap.String("event_name", q.EventName),
		zap.String("interval", string(q.Interval)))

	return cache.Compute(ctx, s.cache, kindMetrics, key, s.ttl, func(ctx context.Context) ([]domain.MetricPoint, error) {
		return s.metrics.Compute(ctx, q)
	})
}

// Journey returns a user's events in time order. Not cached.
func (s *AnalyticsService) Journey(ctx context.Context, q domain.JourneyQuery) ([]domain.JourneyEntry, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrQuery)
	}
	if err := q.Range.Validate(); err != nil {
		return nil, err
	}

	events, err := s.repository.FindEvents(ctx, repository.EventFilter{
		Tenant:     q.Tenant,
		UserIDs:    []string{q.UserID},
		Range:      q.Range,
		Properties: q.Properties,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load user journey: %w", err)
	}

	journey := make([]domain.JourneyEntry, 0, len(events))
	for _, ev := range events {
		journey = append(journey, domain.JourneyEntry{
			EventName:  ev.EventName,
			Timestamp:  ev.Timestamp,
			Properties: ev.Properties,
		})
	}
	return journey, nil
}

// Ready reports whether the event store is reachable
func (s *AnalyticsService) Ready(ctx context.Context) error {
	if err := s.repository.Ping(ctx); err != nil {
		return fmt.Errorf("event store unavailable: %w", err)
	}
	return nil
}
