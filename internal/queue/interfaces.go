package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

// PublishFailure reports an event that could not be enqueued, by its index in the published slice
type PublishFailure struct {
	Index int
	Err   error
}

// QueuePublisher defines the interface for publishing events to a queue
type QueuePublisher interface {
	// PublishEvents enqueues one message per event. Events are published
	// independently; the returned failures name those that were not enqueued.
	PublishEvents(ctx context.Context, events []*domain.Event) []PublishFailure
}

// QueueConsumer defines the interface for consuming messages from a queue
type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	QueueURL() string
}

// DeadLetterPublisher moves messages that cannot be processed out of the main queue
type DeadLetterPublisher interface {
	SendToDeadLetter(ctx context.Context, body, reason string, attempts int) error
}
