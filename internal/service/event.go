package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/dto"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/queue"
)

// MaxBatchSize is the largest number of events accepted in a single request
const MaxBatchSize = 10000

// EventService represents event service
type EventService struct {
	publisher queue.QueuePublisher
	clock     quartz.Clock
	log       *zap.Logger

	queued   prometheus.Counter
	rejected *prometheus.CounterVec
}

// NewEventService creates a new event service
func NewEventService(publisher queue.QueuePublisher, clock quartz.Clock, reg prometheus.Registerer, log *zap.Logger) *EventService {
	factory := promauto.With(reg)
	return &EventService{
		publisher: publisher,
		clock:     clock,
		log:       log,
		queued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "events_queued_total",
			Help:      "Events accepted and enqueued for persistence.",
		}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "events_rejected_total",
			Help:      "Events rejected at the accept path.",
		}, []string{"reason"}),
	}
}

// SubmitBatch validates a batch and enqueues every valid event. Once an event
// is enqueued it is accepted; invalid events and enqueue failures are reported
// per index without failing the rest of the batch.
func (s *EventService) SubmitBatch(ctx context.Context, tenant domain.Tenant, inputs []dto.EventInput) (*dto.SubmitEventsResponse, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: batch contains no events", domain.ErrInvalidBatch)
	}
	if len(inputs) > MaxBatchSize {
		s.log.Warn("Rejected oversized batch",
			zap.Int("size", len(inputs)),
			zap.Int("max", MaxBatchSize),
			zap.String("org_id", tenant.OrgID))
		return nil, fmt.Errorf("%w: batch of %d events exceeds the limit of %d", domain.ErrInvalidBatch, len(inputs), MaxBatchSize)
	}

	receivedAt := s.clock.Now().UTC()
	resp := &dto.SubmitEventsResponse{}

	events := make([]*domain.Event, 0, len(inputs))
	indexes := make([]int, 0, len(inputs))
	for i := range inputs {
		event, err := toEvent(tenant, &inputs[i], receivedAt)
		if err != nil {
			s.reject(resp, i, "validation", err)
			continue
		}
		events = append(events, event)
		indexes = append(indexes, i)
	}

	if len(events) > 0 {
		failures := s.publisher.PublishEvents(ctx, events)
		for _, f := range failures {
			s.log.Error("Failed to enqueue event",
				zap.Int("index", indexes[f.Index]),
				zap.String("event_name", events[f.Index].EventName),
				zap.Error(f.Err))
			s.reject(resp, indexes[f.Index], "enqueue", fmt.Errorf("failed to enqueue event: %w", f.Err))
		}
		resp.Queued = len(events) - len(failures)
		s.queued.Add(float64(resp.Queued))
	}

	s.log.Info("Batch accepted",
		zap.String("org_id", tenant.OrgID),
		zap.String("project_id", tenant.ProjectID),
		zap.Int("queued", resp.Queued),
		zap.Int("rejected", resp.Rejected))

	return resp, nil
}

func (s *EventService) reject(resp *dto.SubmitEventsResponse, index int, reason string, err error) {
	resp.Rejected++
	resp.Errors = append(resp.Errors, dto.EventError{Index: index, Message: err.Error()})
	s.rejected.WithLabelValues(reason).Inc()
}

// toEvent validates a submitted event and fills in its tenant
func toEvent(tenant domain.Tenant, in *dto.EventInput, receivedAt time.Time) (*domain.Event, error) {
	if (in.OrgID != "" && in.OrgID != tenant.OrgID) || (in.ProjectID != "" && in.ProjectID != tenant.ProjectID) {
		return nil, fmt.Errorf("%w: event names %s/%s", domain.ErrTenantMismatch, in.OrgID, in.ProjectID)
	}

	var problems []string
	if in.UserID == "" {
		problems = append(problems, "userId is required")
	}
	if in.EventName == "" {
		problems = append(problems, "eventName is required")
	}
	ts, err := time.Parse(time.RFC3339Nano, in.Timestamp)
	if err != nil {
		problems = append(problems, fmt.Sprintf("timestamp %q is not ISO-8601", in.Timestamp))
	}
	props, err := domain.Properties(in.Properties).Normalize()
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}

	return &domain.Event{
		OrgID:      tenant.OrgID,
		ProjectID:  tenant.ProjectID,
		UserID:     in.UserID,
		EventName:  in.EventName,
		Timestamp:  ts.UTC(),
		Properties: props,
		ReceivedAt: receivedAt,
	}, nil
}
