package repository

import (
	"context"
	"time"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

// EventFilter selects events for a filtered scan. Empty fields do not filter.
type EventFilter struct {
	Tenant     domain.Tenant
	EventNames []string
	UserIDs    []string
	Range      domain.DateRange
	Properties map[string]string
}

// FirstOccurrenceQuery selects the earliest occurrence of an event per user
type FirstOccurrenceQuery struct {
	Tenant    domain.Tenant
	EventName string
	Since     time.Time
}

// BucketQuery groups matching events by a truncation of their timestamp
type BucketQuery struct {
	Tenant     domain.Tenant
	EventName  string
	Interval   domain.Interval
	UserID     string
	Range      domain.DateRange
	Properties map[string]string
}

// BucketCount is the number of events in the bucket starting at Start (UTC)
type BucketCount struct {
	Start time.Time
	Count uint64
}

// EventRepository defines the interface for event storage operations
type EventRepository interface {
	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error

	// InsertEvent persists a single event. There is no dedup key: inserting the
	// same event twice stores it twice.
	InsertEvent(ctx context.Context, event *domain.Event) error

	// FindEvents returns the events matching the filter ordered by
	// user_id, timestamp, received_at, event_id
	FindEvents(ctx context.Context, filter EventFilter) ([]*domain.Event, error)

	// FirstOccurrences returns, per user, the timestamp of the earliest matching event
	FirstOccurrences(ctx context.Context, query FirstOccurrenceQuery) (map[string]time.Time, error)

	// CountByBucket returns per-bucket counts ordered by bucket start ascending.
	// Buckets without events are not returned.
	CountByBucket(ctx context.Context, query BucketQuery) ([]BucketCount, error)
}
