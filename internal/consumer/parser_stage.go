package consumer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/queue"
)

// ParserStage handles parsing SQS messages into domain envelopes
type ParserStage struct {
	consumer    queue.QueueConsumer
	deadLetters queue.DeadLetterPublisher
	parser      MessageParser
	metrics     *Metrics
	log         *zap.Logger
}

// NewParserStage creates a new parser stage
func NewParserStage(consumer queue.QueueConsumer, deadLetters queue.DeadLetterPublisher, parser MessageParser, metrics *Metrics, log *zap.Logger) *ParserStage {
	return &ParserStage{
		consumer:    consumer,
		deadLetters: deadLetters,
		parser:      parser,
		metrics:     metrics,
		log:         log,
	}
}

// Start begins parsing messages and outputs envelopes
func (p *ParserStage) Start(ctx context.Context, in <-chan types.Message, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Parser stage shutting down")
			return
		case msg, ok := <-in:
			if !ok {
				p.log.Info("Parser stage input channel closed")
				return
			}

			envelope := p.parseMessage(ctx, msg)
			if envelope == nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- envelope:
			}
		}
	}
}

// parseMessage parses a single SQS message into an envelope. Malformed
// messages are dead-lettered right away and nil is returned.
func (p *ParserStage) parseMessage(ctx context.Context, msg types.Message) *Envelope {
	messageID := aws.ToString(msg.MessageId)
	event, err := p.parser.Parse([]byte(aws.ToString(msg.Body)))
	if err != nil {
		p.log.Warn("Failed to parse message",
			zap.String("message_id", messageID),
			zap.Error(err))
		if err := p.deadLetter(ctx, msg, ReasonMalformed, 1); err != nil {
			p.log.Error("Failed to dead-letter malformed message, leaving it in the queue",
				zap.String("message_id", messageID),
				zap.Error(err))
		}
		return nil
	}

	ack := func(ctx context.Context) error {
		return p.deleteMessage(ctx, msg)
	}
	deadLetter := func(ctx context.Context, reason string, attempts int) error {
		return p.deadLetter(ctx, msg, reason, attempts)
	}

	return NewEnvelope(event, messageID, ack, deadLetter)
}

// deadLetter copies the original body to the dead-letter queue, then deletes the source message
func (p *ParserStage) deadLetter(ctx context.Context, msg types.Message, reason string, attempts int) error {
	if err := p.deadLetters.SendToDeadLetter(ctx, aws.ToString(msg.Body), reason, attempts); err != nil {
		return err
	}
	p.metrics.DeadLettered.WithLabelValues(reason).Inc()

	p.log.Error("Message dead-lettered",
		zap.String("message_id", aws.ToString(msg.MessageId)),
		zap.String("reason", reason),
		zap.Int("attempts", attempts))

	if err := p.deleteMessage(ctx, msg); err != nil {
		return fmt.Errorf("dead-lettered but failed to delete source message: %w", err)
	}
	return nil
}

// deleteMessage deletes a message from SQS
func (p *ParserStage) deleteMessage(ctx context.Context, msg types.Message) error {
	_, err := p.consumer.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.consumer.QueueURL()),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", aws.ToString(msg.MessageId), err)
	}
	return nil
}
