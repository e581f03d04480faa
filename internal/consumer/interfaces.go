package consumer

import (
	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

// MessageParser defines the interface for parsing raw message bytes into events
type MessageParser interface {
	Parse(body []byte) (*domain.Event, error)
}

// LiveCounter is notified once per persisted event
type LiveCounter interface {
	Increment(eventName string)
}
