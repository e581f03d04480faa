package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

type storedEvent struct {
	event domain.Event
	seq   uint64
}

// Repository is an in-process implementation of repository.EventRepository.
// Suitable for tests and single-instance development; data is lost on restart.
type Repository struct {
	mu     sync.RWMutex
	events []storedEvent
	seq    uint64
	log    *zap.Logger
}

// NewRepository creates an empty in-memory repository
func NewRepository(log *zap.Logger) *Repository {
	return &Repository{log: log}
}

// InitSchema is a no-op for the in-memory store
func (r *Repository) InitSchema(ctx context.Context) error {
	r.log.Info("In-memory event store ready")
	return nil
}

// Ping always succeeds unless the context is done
func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for the in-memory store
func (r *Repository) Close() error {
	return nil
}

// InsertEvent appends a copy of the event
func (r *Repository) InsertEvent(ctx context.Context, event *domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.events = append(r.events, storedEvent{event: cloneEvent(event), seq: r.seq})
	return nil
}

// Len returns the number of stored events
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// FindEvents returns copies of matching events ordered by user, timestamp, received_at, event_id
func (r *Repository) FindEvents(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, error) {
	r.mu.RLock()
	matched := make([]storedEvent, 0)
	for _, se := range r.events {
		if matchesFilter(&se.event, filter) {
			matched = append(matched, se)
		}
	}
	r.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(matched, func(a, b storedEvent) int {
		return cmp.Or(
			cmp.Compare(a.event.UserID, b.event.UserID),
			a.event.Timestamp.Compare(b.event.Timestamp),
			a.event.ReceivedAt.Compare(b.event.ReceivedAt),
			cmp.Compare(a.event.EventID, b.event.EventID),
			cmp.Compare(a.seq, b.seq),
		)
	})

	out := make([]*domain.Event, len(matched))
	for i := range matched {
		ev := cloneEvent(&matched[i].event)
		out[i] = &ev
	}
	return out, nil
}

// FirstOccurrences returns the earliest timestamp of the event per user at or after Since
func (r *Repository) FirstOccurrences(ctx context.Context, query repository.FirstOccurrenceQuery) (map[string]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	first := make(map[string]time.Time)
	for _, se := range r.events {
		ev := &se.event
		if ev.Tenant() != query.Tenant || ev.EventName != query.EventName || ev.Timestamp.Before(query.Since) {
			continue
		}
		if cur, ok := first[ev.UserID]; !ok || ev.Timestamp.Before(cur) {
			first[ev.UserID] = ev.Timestamp
		}
	}
	return first, ctx.Err()
}

// CountByBucket groups matching events by the interval truncation of their timestamp
func (r *Repository) CountByBucket(ctx context.Context, query repository.BucketQuery) ([]repository.BucketCount, error) {
	filter := repository.EventFilter{
		Tenant:     query.Tenant,
		EventNames: []string{query.EventName},
		Range:      query.Range,
		Properties: query.Properties,
	}
	if query.UserID != "" {
		filter.UserIDs = []string{query.UserID}
	}

	counts := make(map[time.Time]uint64)

	r.mu.RLock()
	for _, se := range r.events {
		if matchesFilter(&se.event, filter) {
			counts[query.Interval.Truncate(se.event.Timestamp)]++
		}
	}
	r.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]repository.BucketCount, 0, len(counts))
	for start, count := range counts {
		out = append(out, repository.BucketCount{Start: start, Count: count})
	}
	slices.SortFunc(out, func(a, b repository.BucketCount) int {
		return a.Start.Compare(b.Start)
	})
	return out, nil
}

func matchesFilter(ev *domain.Event, filter repository.EventFilter) bool {
	if ev.Tenant() != filter.Tenant {
		return false
	}
	if len(filter.EventNames) > 0 && !slices.Contains(filter.EventNames, ev.EventName) {
		return false
	}
	if len(filter.UserIDs) > 0 && !slices.Contains(filter.UserIDs, ev.UserID) {
		return false
	}
	if !filter.Range.Contains(ev.Timestamp) {
		return false
	}
	return ev.Properties.Matches(filter.Properties)
}

func cloneEvent(ev *domain.Event) domain.Event {
	out := *ev
	if ev.Properties != nil {
		out.Properties = make(domain.Properties, len(ev.Properties))
		for k, v := range ev.Properties {
			out.Properties[k] = v
		}
	}
	return out
}
