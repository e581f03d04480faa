package domain

import (
	"fmt"
	"time"
)

// Interval is the bucket width of a metrics query
type Interval string

const (
	IntervalDaily  Interval = "daily"
	IntervalWeekly Interval = "weekly"
)

// ParseInterval validates an interval string; an empty value defaults to daily.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case "":
		return IntervalDaily, nil
	case IntervalDaily, IntervalWeekly:
		return Interval(s), nil
	default:
		return "", fmt.Errorf("%w: unsupported interval %q (supported: daily, weekly)", ErrQuery, s)
	}
}

// Truncate returns the UTC start of the bucket containing t.
// Weekly buckets start on the ISO Monday.
func (i Interval) Truncate(t time.Time) time.Time {
	day := TruncateDay(t)
	if i != IntervalWeekly {
		return day
	}
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Label renders a bucket start: "2006-01-02" for daily, ISO "2006-W01" for weekly.
func (i Interval) Label(t time.Time) string {
	t = t.UTC()
	if i == IntervalWeekly {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return t.Format(time.DateOnly)
}

// TruncateDay returns midnight UTC of the day containing t
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange is an optional inclusive time window
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Validate rejects inverted ranges
func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return fmt.Errorf("%w: startDate must not be after endDate", ErrQuery)
	}
	return nil
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// FunnelRequest asks how many users completed an ordered sequence of events
type FunnelRequest struct {
	Tenant Tenant    `json:"tenant"`
	Steps  []string  `json:"steps"`
	Range  DateRange `json:"range"`
}

// FunnelStepResult is the outcome of a single funnel step
type FunnelStepResult struct {
	Step                string `json:"step"`
	Users               int    `json:"users"`
	DropoffFromPrevious int    `json:"dropoffFromPrevious"`
}

// FunnelResult is the outcome of a funnel computation, one step per requested step
type FunnelResult struct {
	TotalUsers int                `json:"totalUsers"`
	Steps      []FunnelStepResult `json:"steps"`
}

// RetentionQuery asks how a cohort keeps coming back day by day
type RetentionQuery struct {
	Tenant      Tenant `json:"tenant"`
	CohortEvent string `json:"cohortEvent"`
	WindowDays  int    `json:"windowDays"`
}

// RetentionBucket holds the users active a given number of days after their cohort day
type RetentionBucket struct {
	Day   int      `json:"day"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// MetricsQuery asks for time-bucketed event counts
type MetricsQuery struct {
	Tenant     Tenant            `json:"tenant"`
	EventName  string            `json:"eventName"`
	Interval   Interval          `json:"interval"`
	UserID     string            `json:"userId,omitempty"`
	Range      DateRange         `json:"range"`
	Properties map[string]string `json:"properties,omitempty"`
}

// MetricPoint is the count of a single bucket
type MetricPoint struct {
	Date  string `json:"date"`
	Count uint64 `json:"count"`
}

// JourneyQuery asks for the ordered event history of one user
type JourneyQuery struct {
	Tenant     Tenant            `json:"tenant"`
	UserID     string            `json:"userId"`
	Range      DateRange         `json:"range"`
	Properties map[string]string `json:"properties,omitempty"`
}

// JourneyEntry is one step of a user journey
type JourneyEntry struct {
	EventName  string     `json:"eventName"`
	Timestamp  time.Time  `json:"timestamp"`
	Properties Properties `json:"properties"`
}
