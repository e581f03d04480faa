package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"eventName is required"`
}

// EventError describes why a single submitted event was rejected
type EventError struct {
	Index   int    `json:"index" example:"3"`
	Message string `json:"message" example:"validation error: timestamp must be ISO-8601"`
}

// SubmitEventsResponse reports how many events of a batch were queued
type SubmitEventsResponse struct {
	Queued   int          `json:"queued" example:"99"`
	Rejected int          `json:"rejected" example:"1"`
	Errors   []EventError `json:"errors,omitempty"`
}

// HealthResponse is returned by the health and readiness probes
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
