package domain

import "time"

// Tenant scopes all data visibility and queries
type Tenant struct {
	OrgID     string `json:"orgId"`
	ProjectID string `json:"projectId"`
}

// IsZero reports whether the tenant carries no identity
func (t Tenant) IsZero() bool {
	return t.OrgID == "" && t.ProjectID == ""
}

// Event represents a behavioral event as it travels through the queue and the store.
// Timestamp is client-supplied, ReceivedAt is assigned by the server on accept.
type Event struct {
	EventID    string     `json:"eventId,omitempty" ch:"event_id"`
	OrgID      string     `json:"orgId" ch:"org_id"`
	ProjectID  string     `json:"projectId" ch:"project_id"`
	UserID     string     `json:"userId" ch:"user_id"`
	EventName  string     `json:"eventName" ch:"event_name"`
	Timestamp  time.Time  `json:"timestamp" ch:"timestamp"`
	Properties Properties `json:"properties,omitempty" ch:"properties"`
	ReceivedAt time.Time  `json:"receivedAt" ch:"received_at"`
}

// Tenant returns the tenant the event belongs to
func (e *Event) Tenant() Tenant {
	return Tenant{OrgID: e.OrgID, ProjectID: e.ProjectID}
}
