package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/queue"
)

// ReceiverConfig configures the SQS receiver
type ReceiverConfig struct {
	MaxMessages     int32
	WaitTimeSeconds int32
	BufferSize      int
	// ErrorBackoff caps the wait between failed receive calls
	ErrorBackoff time.Duration
}

// Receiver handles receiving messages from SQS
type Receiver struct {
	consumer queue.QueueConsumer
	config   ReceiverConfig
	metrics  *Metrics
	log      *zap.Logger
}

// NewReceiver creates a new SQS receiver
func NewReceiver(consumer queue.QueueConsumer, config ReceiverConfig, metrics *Metrics, log *zap.Logger) *Receiver {
	return &Receiver{
		consumer: consumer,
		config:   config,
		metrics:  metrics,
		log:      log,
	}
}

// Start long-polls the queue and sends messages to the output channel until ctx is done
func (r *Receiver) Start(ctx context.Context, out chan<- types.Message) {
	defer close(out)

	errBackoff := backoff.NewExponentialBackOff()
	errBackoff.InitialInterval = min(100*time.Millisecond, r.config.ErrorBackoff)
	errBackoff.MaxInterval = r.config.ErrorBackoff
	errBackoff.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			r.log.Info("Receiver shutting down")
			return
		}

		result, err := r.consumer.ReceiveMessages(ctx, &awssqs.ReceiveMessageInput{
			QueueUrl:              aws.String(r.consumer.QueueURL()),
			MaxNumberOfMessages:   r.config.MaxMessages,
			WaitTimeSeconds:       r.config.WaitTimeSeconds,
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.metrics.ReceiveErrors.Inc()
			wait := errBackoff.NextBackOff()
			r.log.Error("Error receiving messages from SQS",
				zap.Duration("retry_in", wait),
				zap.Error(err))

			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		errBackoff.Reset()

		if len(result.Messages) == 0 {
			continue
		}

		r.log.Debug("Received messages from SQS", zap.Int("message_count", len(result.Messages)))

		for _, msg := range result.Messages {
			select {
			case <-ctx.Done():
				r.log.Info("Receiver shutting down while sending messages")
				return
			case out <- msg:
			}
		}
	}
}
