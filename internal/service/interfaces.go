package service

import (
	"context"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/dto"
)

// EventServicer defines the interface for event ingestion operations
type EventServicer interface {
	SubmitBatch(ctx context.Context, tenant domain.Tenant, events []dto.EventInput) (*dto.SubmitEventsResponse, error)
}

// AnalyticsServicer defines the interface for analytics queries
type AnalyticsServicer interface {
	Funnel(ctx context.Context, req domain.FunnelRequest) (*domain.FunnelResult, error)
	Journey(ctx context.Context, q domain.JourneyQuery) ([]domain.JourneyEntry, error)
	Retention(ctx context.Context, q domain.RetentionQuery) ([]domain.RetentionBucket, error)
	Metrics(ctx context.Context, q domain.MetricsQuery) ([]domain.MetricPoint, error)
	Ready(ctx context.Context) error
}
