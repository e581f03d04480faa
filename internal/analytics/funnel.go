package analytics

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

// FunnelEngine counts how many users completed an ordered sequence of events
type FunnelEngine struct {
	repository repository.EventRepository
	log        *zap.Logger
}

// NewFunnelEngine creates a new funnel engine
func NewFunnelEngine(repo repository.EventRepository, log *zap.Logger) *FunnelEngine {
	return &FunnelEngine{
		repository: repo,
		log:        log,
	}
}

// Validate rejects requests the engine cannot answer
func (e *FunnelEngine) Validate(req domain.FunnelRequest) error {
	if len(req.Steps) == 0 {
		return fmt.Errorf("%w: at least one funnel step is required", domain.ErrQuery)
	}
	for i, step := range req.Steps {
		if step == "" {
			return fmt.Errorf("%w: funnel step %d has no event name", domain.ErrQuery, i)
		}
	}
	return req.Range.Validate()
}

// Compute runs the funnel. Each user's events are scanned once in time order;
// a step only matches an event after the one matched by the previous step,
// and a user stops progressing at the first step they never reached.
func (e *FunnelEngine) Compute(ctx context.Context, req domain.FunnelRequest) (*domain.FunnelResult, error) {
	if err := e.Validate(req); err != nil {
		return nil, err
	}

	events, err := e.repository.FindEvents(ctx, repository.EventFilter{
		Tenant:     req.Tenant,
		EventNames: uniqueSteps(req.Steps),
		Range:      req.Range,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load funnel events: %w", err)
	}

	counts := make([]int, len(req.Steps))
	totalUsers := 0

	// the store returns events grouped by user and ordered by timestamp
	for start := 0; start < len(events); {
		end := start + 1
		for end < len(events) && events[end].UserID == events[start].UserID {
			end++
		}
		totalUsers++
		advance(events[start:end], req.Steps, counts)
		start = end
	}

	result := &domain.FunnelResult{
		TotalUsers: totalUsers,
		Steps:      make([]domain.FunnelStepResult, len(req.Steps)),
	}
	for i, step := range req.Steps {
		result.Steps[i] = domain.FunnelStepResult{Step: step, Users: counts[i]}
		if i > 0 {
			result.Steps[i].DropoffFromPrevious = counts[i-1] - counts[i]
		}
	}

	e.log.Debug("Funnel computed",
		zap.String("org_id", req.Tenant.OrgID),
		zap.String("project_id", req.Tenant.ProjectID),
		zap.Strings("steps", req.Steps),
		zap.Int("events_scanned", len(events)),
		zap.Int("total_users", totalUsers))

	return result, nil
}

// advance walks one user's time-ordered events through the steps
func advance(userEvents []*domain.Event, steps []string, counts []int) {
	lastIndex := -1
	for i, step := range steps {
		next := indexOf(userEvents, step, lastIndex+1)
		if next < 0 {
			return
		}
		counts[i]++
		lastIndex = next
	}
}

func indexOf(events []*domain.Event, name string, from int) int {
	for i := from; i < len(events); i++ {
		if events[i].EventName == name {
			return i
		}
	}
	return -1
}

func uniqueSteps(steps []string) []string {
	names := slices.Clone(steps)
	slices.Sort(names)
	return slices.Compact(names)
}
