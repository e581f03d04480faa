package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

//go:embed schema.sql
var schemaSQL string

// Repository implements EventRepository for PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Connect creates a connection pool and fails fast if the database is unreachable
func Connect(ctx context.Context, dsn string, log *zap.Logger) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("PostgreSQL connection established successfully",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database))

	return &Repository{pool: pool, log: log}, nil
}

// InitSchema applies schema.sql. Safe to run multiple times.
func (r *Repository) InitSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	r.log.Info("PostgreSQL schema initialized successfully")
	return nil
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close shuts down the connection pool
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// InsertEvent persists a single event
func (r *Repository) InsertEvent(ctx context.Context, event *domain.Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (event_id, org_id, project_id, user_id, event_name, ts, properties, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`,
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
		return fmt.Errorf("%w: insert event: %v", domain.ErrPersistence, err)
	}
	return nil
}

// FindEvents scans events matching the filter
func (r *Repository) FindEvents(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, error) {
	where := newWhere(filter.Tenant)
	if len(filter.EventNames) > 0 {
		where.add("event_name = ANY(%s)", filter.EventNames)
	}
	if len(filter.UserIDs) > 0 {
		where.add("user_id = ANY(%s)", filter.UserIDs)
	}
	where.dateRange(filter.Range)
	where.properties(filter.Properties)

	sql := `
		SELECT event_id, org_id, project_id, user_id, event_name, ts, properties::text, received_at
		FROM events
		` + where.String() + `
		ORDER BY user_id ASC, ts ASC, received_at ASC, event_id ASC, seq ASC`

	rows, err := r.pool.Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		var (
			ev    domain.Event
			props string
		)
		if err := rows.Scan(&ev.EventID, &ev.OrgID, &ev.ProjectID, &ev.UserID, &ev.EventName,
			&ev.Timestamp, &props, &ev.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Properties, err = domain.ParseProperties(props); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.EventID, err)
		}
		ev.Timestamp = ev.Timestamp.UTC()
		ev.ReceivedAt = ev.ReceivedAt.UTC()
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// FirstOccurrences returns min(ts) per user for the cohort event
func (r *Repository) FirstOccurrences(ctx context.Context, query repository.FirstOccurrenceQuery) (map[string]time.Time, error) {
	where := newWhere(query.Tenant)
	where.add("event_name = %s", query.EventName)
	where.add("ts >= %s", query.Since.UTC())

	rows, err := r.pool.Query(ctx,
		"SELECT user_id, MIN(ts) FROM events "+where.String()+" GROUP BY user_id",
		where.args...)
	if err != nil {
		return nil, fmt.Errorf("query first occurrences: %w", err)
	}
	defer rows.Close()

	first := make(map[string]time.Time)
	for rows.Next() {
		var (
			userID string
			seen   time.Time
		)
		if err := rows.Scan(&userID, &seen); err != nil {
			return nil, fmt.Errorf("scan first occurrence: %w", err)
		}
		first[userID] = seen.UTC()
	}
	return first, rows.Err()
}

// CountByBucket groups matching events by day or ISO week (date_trunc weeks start on Monday)
func (r *Repository) CountByBucket(ctx context.Context, query repository.BucketQuery) ([]repository.BucketCount, error) {
	var unit string
	switch query.Interval {
	case domain.IntervalDaily:
		unit = "day"
	case domain.IntervalWeekly:
		unit = "week"
	default:
		return nil, fmt.Errorf("%w: unsupported interval %q", domain.ErrQuery, query.Interval)
	}

	where := newWhere(query.Tenant)
	where.add("event_name = %s", query.EventName)
	if query.UserID != "" {
		where.add("user_id = %s", query.UserID)
	}
	where.dateRange(query.Range)
	where.properties(query.Properties)

	sql := fmt.Sprintf(`
SELECT
  date_trunc('%s', ts AT TIME ZONE 'UTC') AS bucket_start,
  COUNT(*)::bigint AS cnt
FROM events
%s
GROUP BY 1
ORDER BY 1 ASC`, unit, where.String())

	rows, err := r.pool.Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.BucketCount, error) {
		var (
			start time.Time
			count int64
		)
		if err := row.Scan(&start, &count); err != nil {
			return repository.BucketCount{}, fmt.Errorf("scan bucket: %w", err)
		}
		return repository.BucketCount{
			Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
			Count: uint64(count),
		}, nil
	})
}

// where accumulates AND-ed conditions with $n placeholders
type where struct {
	conds []string
	args  []any
}

func newWhere(tenant domain.Tenant) *where {
	w := &where{}
	w.add("org_id = %s", tenant.OrgID)
	w.add("project_id = %s", tenant.ProjectID)
	return w
}

// add appends a condition whose %s verbs are replaced by consecutive placeholders
func (w *where) add(cond string, args ...any) {
	placeholders := make([]any, len(args))
	for i, arg := range args {
		w.args = append(w.args, arg)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.conds = append(w.conds, fmt.Sprintf(cond, placeholders...))
}

func (w *where) dateRange(r domain.DateRange) {
	if r.Start != nil {
		w.add("ts >= %s", r.Start.UTC())
	}
	if r.End != nil {
		w.add("ts <= %s", r.End.UTC())
	}
}

func (w *where) properties(filters map[string]string) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		w.add("properties->>%s = %s", k, filters[k])
	}
}

func (w *where) String() string {
	return "WHERE " + strings.Join(w.conds, " AND ")
}
