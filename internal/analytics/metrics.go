package analytics

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

// MetricsEngine produces time-bucketed event counts
type MetricsEngine struct {
	repository repository.EventRepository
	log        *zap.Logger
}

// NewMetricsEngine creates a new metrics engine
func NewMetricsEngine(repo repository.EventRepository, log *zap.Logger) *MetricsEngine {
	return &MetricsEngine{
		repository: repo,
		log:        log,
	}
}

// Validate rejects queries the engine cannot answer
func (e *MetricsEngine) Validate(q domain.MetricsQuery) error {
	if q.EventName == "" {
		return fmt.Errorf("%w: event name is required", domain.ErrQuery)
	}
	if q.Interval != domain.IntervalDaily && q.Interval != domain.IntervalWeekly {
		return fmt.Errorf("%w: unsupported interval %q", domain.ErrQuery, q.Interval)
	}
	return q.Range.Validate()
}

// Compute returns non-empty buckets in ascending order. Buckets without
// events are omitted, not zero-filled.
func (e *MetricsEngine) Compute(ctx context.Context, q domain.MetricsQuery) ([]domain.MetricPoint, error) {
	if err := e.Validate(q); err != nil {
		return nil, err
	}

	buckets, err := e.repository.CountByBucket(ctx, repository.BucketQuery{
		Tenant:     q.Tenant,
		EventName:  q.EventName,
		Interval:   q.Interval,
		UserID:     q.UserID,
		Range:      q.Range,
		Properties: q.Properties,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	slices.SortFunc(buckets, func(a, b repository.BucketCount) int {
		return a.Start.Compare(b.Start)
	})

	points := make([]domain.MetricPoint, 0, len(buckets))
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		points = append(points, domain.MetricPoint{
			Date:  q.Interval.Label(b.Start),
			Count: b.Count,
		})
	}

	e.log.Debug("Metrics computed",
		zap.String("org_id", q.Tenant.OrgID),
		zap.String("project_id", q.Tenant.ProjectID),
		zap.String("event_name", q.EventName),
		zap.String("interval", string(q.Interval)),
		zap.Int("points", len(points)))

	return points, nil
}
