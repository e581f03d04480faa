package analytics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

const day = 24 * time.Hour

// RetentionEngine groups users by the day they first performed a cohort event
// and reports on which following days they were active
type RetentionEngine struct {
	repository repository.EventRepository
	clock      quartz.Clock
	maxDays    int
	log        *zap.Logger
}

// NewRetentionEngine creates a retention engine accepting windows of up to maxDays
func NewRetentionEngine(repo repository.EventRepository, clock quartz.Clock, maxDays int, log *zap.Logger) *RetentionEngine {
	return &RetentionEngine{
		repository: repo,
		clock:      clock,
		maxDays:    maxDays,
		log:        log,
	}
}

// Validate rejects queries the engine cannot answer
func (e *RetentionEngine) Validate(q domain.RetentionQuery) error {
	if q.CohortEvent == "" {
		return fmt.Errorf("%w: cohort event is required", domain.ErrQuery)
	}
	if q.WindowDays < 1 || q.WindowDays > e.maxDays {
		return fmt.Errorf("%w: window must be between 1 and %d days, got %d", domain.ErrQuery, e.maxDays, q.WindowDays)
	}
	return nil
}

// Compute returns one bucket per day offset 0..WindowDays, or no buckets when
// nobody performed the cohort event inside the window. Days are UTC calendar days.
func (e *RetentionEngine) Compute(ctx context.Context, q domain.RetentionQuery) ([]domain.RetentionBucket, error) {
	if err := e.Validate(q); err != nil {
		return nil, err
	}

	windowStart := domain.TruncateDay(e.clock.Now()).AddDate(0, 0, -q.WindowDays)

	first, err := e.repository.FirstOccurrences(ctx, repository.FirstOccurrenceQuery{
		Tenant:    q.Tenant,
		EventName: q.CohortEvent,
		Since:     windowStart,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load cohort: %w", err)
	}
	if len(first) == 0 {
		return []domain.RetentionBucket{}, nil
	}

	cohortDay := make(map[string]time.Time, len(first))
	userIDs := make([]string, 0, len(first))
	for userID, seen := range first {
		cohortDay[userID] = domain.TruncateDay(seen)
		userIDs = append(userIDs, userID)
	}
	slices.Sort(userIDs)

	events, err := e.repository.FindEvents(ctx, repository.EventFilter{
		Tenant:  q.Tenant,
		UserIDs: userIDs,
		Range:   domain.DateRange{Start: &windowStart},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load cohort activity: %w", err)
	}

	active := make([]map[string]struct{}, q.WindowDays+1)
	for i := range active {
		active[i] = make(map[string]struct{})
	}

	for _, ev := range events {
		start, ok := cohortDay[ev.UserID]
		if !ok {
			continue
		}
		offset := int(domain.TruncateDay(ev.Timestamp).Sub(start) / day)
		if offset < 0 || offset > q.WindowDays {
			continue
		}
		active[offset][ev.UserID] = struct{}{}
	}

	buckets := make([]domain.RetentionBucket, len(active))
	for offset, set := range active {
		users := make([]string, 0, len(set))
		for userID := range set {
			users = append(users, userID)
		}
		slices.Sort(users)
		buckets[offset] = domain.RetentionBucket{Day: offset, Users: users, Count: len(users)}
	}

	e.log.Debug("Retention computed",
		zap.String("org_id", q.Tenant.OrgID),
		zap.String("project_id", q.Tenant.ProjectID),
		zap.String("cohort_event", q.CohortEvent),
		zap.Int("window_days", q.WindowDays),
		zap.Int("cohort_size", len(userIDs)))

	return buckets, nil
}
