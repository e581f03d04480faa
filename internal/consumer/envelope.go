package consumer

import (
	"context"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

// Envelope wraps a decoded event with the callbacks that settle its source message
type Envelope struct {
	Event     *domain.Event
	MessageID string

	ack        func(context.Context) error
	deadLetter func(ctx context.Context, reason string, attempts int) error
}

// NewEnvelope creates a new message envelope
func NewEnvelope(event *domain.Event, messageID string, ack func(context.Context) error, deadLetter func(context.Context, string, int) error) *Envelope {
	return &Envelope{
		Event:      event,
		MessageID:  messageID,
		ack:        ack,
		deadLetter: deadLetter,
	}
}

// Ack removes the source message after the event was persisted
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// DeadLetter moves the source message to the dead-letter queue. On error the
// source message is left in place and will be redelivered.
func (e *Envelope) DeadLetter(ctx context.Context, reason string, attempts int) error {
	if e.deadLetter != nil {
		return e.deadLetter(ctx, reason, attempts)
	}
	return nil
}
