package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

const eventColumns = "event_id, org_id, project_id, user_id, event_name, timestamp, properties, received_at"

// Repository implements EventRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the events table. Plain MergeTree: duplicates are kept,
// retried inserts are visible as separate rows.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		event_id String,
		org_id LowCardinality(String),
		project_id LowCardinality(String),
		user_id String,
		event_name LowCardinality(String),
		timestamp DateTime64(3, 'UTC'),
		properties String,
		received_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (org_id, project_id, event_name, user_id, timestamp)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertEvent inserts a single event into ClickHouse
func (r *Repository) InsertEvent(ctx context.Context, event *domain.Event) error {
	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO events ("+eventColumns+")")
	if err != nil {
		return fmt.Errorf("%w: failed to prepare insert: %v", domain.ErrPersistence, err)
	}

	err = batch.Append(
		event.EventID,
		event.OrgID,
		event.ProjectID,
		event.UserID,
		event.EventName,
		event.Timestamp.UTC(),
		event.Properties.String(),
		event.ReceivedAt.UTC(),
	)
	if err != nil {
		_ = batch.Abort()
		return fmt.Errorf("%w: failed to append event: %v", domain.ErrPersistence, err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("%w: failed to send insert: %v", domain.ErrPersistence, err)
	}

	return nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// FindEvents scans events matching the filter
func (r *Repository) FindEvents(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, error) {
	where := newWhereBuilder(filter.Tenant)
	where.eventNames(filter.EventNames)
	where.userIDs(filter.UserIDs)
	where.dateRange(filter.Range)
	where.properties(filter.Properties)

	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		%s
		ORDER BY user_id ASC, timestamp ASC, received_at ASC, event_id ASC
	`, eventColumns, where)

	rows, err := r.client.Conn().Query(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer r.closeRows(rows, "events")

	events := make([]*domain.Event, 0)
	for rows.Next() {
		var (
			ev    domain.Event
			props string
		)
		if err := rows.Scan(&ev.EventID, &ev.OrgID, &ev.ProjectID, &ev.UserID, &ev.EventName,
			&ev.Timestamp, &props, &ev.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		ev.Properties, err = domain.ParseProperties(props)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.EventID, err)
		}
		ev.Timestamp = ev.Timestamp.UTC()
		ev.ReceivedAt = ev.ReceivedAt.UTC()
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

// FirstOccurrences returns min(timestamp) per user for the cohort event
func (r *Repository) FirstOccurrences(ctx context.Context, query repository.FirstOccurrenceQuery) (map[string]time.Time, error) {
	where := newWhereBuilder(query.Tenant)
	where.eventNames([]string{query.EventName})
	where.since(query.Since)

	sql := fmt.Sprintf(`
		SELECT user_id, min(timestamp) AS first_seen
		FROM events
		%s
		GROUP BY user_id
	`, where)

	rows, err := r.client.Conn().Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query first occurrences: %w", err)
	}
	defer r.closeRows(rows, "first occurrences")

	first := make(map[string]time.Time)
	for rows.Next() {
		var (
			userID string
			seen   time.Time
		)
		if err := rows.Scan(&userID, &seen); err != nil {
			return nil, fmt.Errorf("failed to scan first occurrence row: %w", err)
		}
		first[userID] = seen.UTC()
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating first occurrence rows: %w", err)
	}

	return first, nil
}

// CountByBucket groups matching events by day or ISO week
func (r *Repository) CountByBucket(ctx context.Context, query repository.BucketQuery) ([]repository.BucketCount, error) {
	var bucketExpr string
	switch query.Interval {
	case domain.IntervalDaily:
		bucketExpr = "toDateTime(toDate(timestamp), 'UTC')"
	case domain.IntervalWeekly:
		bucketExpr = "toDateTime(toMonday(timestamp), 'UTC')"
	default:
		return nil, fmt.Errorf("%w: unsupported interval %q", domain.ErrQuery, query.Interval)
	}

	where := newWhereBuilder(query.Tenant)
	where.eventNames([]string{query.EventName})
	if query.UserID != "" {
		where.userIDs([]string{query.UserID})
	}
	where.dateRange(query.Range)
	where.properties(query.Properties)

	sql := fmt.Sprintf(`
		SELECT
			%s AS bucket_start,
			count() AS total_count
		FROM events
		%s
		GROUP BY bucket_start
		ORDER BY bucket_start ASC
	`, bucketExpr, where)

	rows, err := r.client.Conn().Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bucketed counts: %w", err)
	}
	defer r.closeRows(rows, "bucketed counts")

	buckets := make([]repository.BucketCount, 0)
	for rows.Next() {
		var b repository.BucketCount
		if err := rows.Scan(&b.Start, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan bucket row: %w", err)
		}
		b.Start = b.Start.UTC()
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bucket rows: %w", err)
	}

	return buckets, nil
}

func (r *Repository) closeRows(rows driver.Rows, what string) {
	if err := rows.Close(); err != nil {
		r.log.Error("Failed to close rows", zap.String("query", what), zap.Error(err))
	}
}
