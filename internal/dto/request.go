package dto

// EventInput is a single event as submitted by a client
type EventInput struct {
	OrgID      string         `json:"orgId,omitempty" example:"org1"`
	ProjectID  string         `json:"projectId,omitempty" example:"proj1"`
	UserID     string         `json:"userId" example:"user_123"`
	EventName  string         `json:"eventName" example:"purchase"`
	Timestamp  string         `json:"timestamp" example:"2024-03-01T10:00:00Z"`
	Properties map[string]any `json:"properties,omitempty" swaggertype:"object,string" example:"amount:129.99,currency:USD"`
}

// SubmitEventsRequest is the ingestion request body
type SubmitEventsRequest struct {
	Events []EventInput `json:"events"`
}

// FunnelStep names one step of a funnel request
type FunnelStep struct {
	Event string `json:"event" example:"signup"`
}

// FunnelRequest is the funnel query body
type FunnelRequest struct {
	OrgID     string       `json:"orgId,omitempty" example:"org1"`
	ProjectID string       `json:"projectId,omitempty" example:"proj1"`
	Steps     []FunnelStep `json:"steps"`
	StartDate string       `json:"startDate,omitempty" example:"2024-01-01"`
	EndDate   string       `json:"endDate,omitempty" example:"2024-01-31T23:59:59Z"`
}

// RetentionRequest holds the retention query parameters
type RetentionRequest struct {
	Cohort string `form:"cohort" example:"signup"`
	Days   int    `form:"days" example:"7"`
}

// MetricsRequest holds the metrics query parameters. Property filters are
// passed as prop.<key>=<value> and collected separately.
type MetricsRequest struct {
	Event     string `form:"event" binding:"required" example:"purchase"`
	Interval  string `form:"interval" example:"daily"`
	UserID    string `form:"userId" example:"user_123"`
	StartDate string `form:"startDate" example:"2024-01-01"`
	EndDate   string `form:"endDate" example:"2024-01-31"`
}

// JourneyRequest holds the journey query parameters
type JourneyRequest struct {
	StartDate string `form:"startDate" example:"2024-01-01"`
	EndDate   string `form:"endDate" example:"2024-01-31"`
}
