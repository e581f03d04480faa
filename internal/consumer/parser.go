package consumer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

// ErrMalformed marks a message that can never be processed
var ErrMalformed = errors.New("malformed message")

// JSONEventParser implements MessageParser for JSON-formatted event messages
type JSONEventParser struct {
	newID func() string
}

// NewJSONEventParser creates a new JSON event parser that assigns random UUIDs
func NewJSONEventParser() *JSONEventParser {
	return &JSONEventParser{newID: uuid.NewString}
}

// Parse decodes a queued event and assigns its store identity
func (p *JSONEventParser) Parse(body []byte) (*domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal message body: %v", ErrMalformed, err)
	}

	switch {
	case event.OrgID == "" || event.ProjectID == "":
		return nil, fmt.Errorf("%w: missing tenant", ErrMalformed)
	case event.UserID == "":
		return nil, fmt.Errorf("%w: missing userId", ErrMalformed)
	case event.EventName == "":
		return nil, fmt.Errorf("%w: missing eventName", ErrMalformed)
	case event.Timestamp.IsZero():
		return nil, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}

	props, err := event.Properties.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	event.Properties = props

	if event.EventID == "" {
		event.EventID = p.newID()
	}
	event.Timestamp = event.Timestamp.UTC()
	event.ReceivedAt = event.ReceivedAt.UTC()

	return &event, nil
}
