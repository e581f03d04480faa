package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/BarkinBalci/behavioral-analytics-service/internal/config"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/queue"
)

// MaxBatchEntries is the SQS limit of entries per SendMessageBatch call
const MaxBatchEntries = 10

// Message attributes set on every published and dead-lettered message
const (
	AttrEventName     = "EventName"
	AttrOrgID         = "OrgId"
	AttrFailureReason = "FailureReason"
	AttrAttempts      = "Attempts"
)

// API is the subset of the SQS client used by Client
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Client represents an SQS client
type Client struct {
	client API
	config envConfig.SQS
	log    *zap.Logger
}

var (
	_ queue.QueuePublisher      = (*Client)(nil)
	_ queue.QueueConsumer       = (*Client)(nil)
	_ queue.DeadLetterPublisher = (*Client)(nil)
)

// NewClient creates a new SQS client
func NewClient(ctx context.Context, SQSConfig envConfig.SQS, log *zap.Logger) (*Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(SQSConfig.Region),
	}

	var clientOpts []func(*sqs.Options)

	// Configure for local development with ElasticMQ
	if SQSConfig.Endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", SQSConfig.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(SQSConfig.Endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("SQS client created",
		zap.String("region", SQSConfig.Region),
		zap.String("queue_url", SQSConfig.QueueURL),
		zap.String("dead_letter_queue_url", SQSConfig.DeadLetterQueueURL))

	return NewClientWithAPI(sqs.NewFromConfig(cfg, clientOpts...), SQSConfig, log), nil
}

// NewClientWithAPI wraps an already configured SQS API
func NewClientWithAPI(api API, SQSConfig envConfig.SQS, log *zap.Logger) *Client {
	return &Client{
		client: api,
		config: SQSConfig,
		log:    log,
	}
}

// ReceiveMessages receives messages from SQS
func (c *Client) ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	return c.client.ReceiveMessage(ctx, input)
}

// DeleteMessage deletes a message from SQS
func (c *Client) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	return c.client.DeleteMessage(ctx, input)
}

// QueueURL returns the configured queue URL
func (c *Client) QueueURL() string {
	return c.config.QueueURL
}

// PublishEvents sends one message per event in batches of MaxBatchEntries.
// Each batch call is bounded by the configured enqueue timeout.
func (c *Client) PublishEvents(ctx context.Context, events []*domain.Event) []queue.PublishFailure {
	var failures []queue.PublishFailure

	for start := 0; start < len(events); start += MaxBatchEntries {
		end := min(start+MaxBatchEntries, len(events))
		failures = append(failures, c.publishChunk(ctx, events[start:end], start)...)
	}

	if len(failures) > 0 {
		c.log.Warn("Some events were not published to SQS",
			zap.Int("published", len(events)-len(failures)),
			zap.Int("failed", len(failures)))
	} else {
		c.log.Debug("Events published to SQS", zap.Int("count", len(events)))
	}

	return failures
}

func (c *Client) publishChunk(ctx context.Context, chunk []*domain.Event, offset int) []queue.PublishFailure {
	var failures []queue.PublishFailure

	entries := make([]types.SendMessageBatchRequestEntry, 0, len(chunk))
	for i, event := range chunk {
		body, err := json.Marshal(event)
		if err != nil {
			failures = append(failures, queue.PublishFailure{
				Index: offset + i,
				Err:   fmt.Errorf("failed to marshal event: %w", err),
			})
			continue
		}

		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:          aws.String(strconv.Itoa(offset + i)),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				AttrEventName: stringAttr(event.EventName),
				AttrOrgID:     stringAttr(event.OrgID),
			},
		})
	}
	if len(entries) == 0 {
		return failures
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.EnqueueTimeout())
	defer cancel()

	out, err := c.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(c.config.QueueURL),
		Entries:  entries,
	})
	if err != nil {
		c.log.Error("Failed to send message batch to SQS",
			zap.Int("entries", len(entries)),
			zap.Error(err))
		for _, entry := range entries {
			idx, _ := strconv.Atoi(aws.ToString(entry.Id))
			failures = append(failures, queue.PublishFailure{
				Index: idx,
				Err:   fmt.Errorf("failed to send message batch to SQS: %w", err),
			})
		}
		return failures
	}

	for _, failed := range out.Failed {
		idx, convErr := strconv.Atoi(aws.ToString(failed.Id))
		if convErr != nil {
			continue
		}
		failures = append(failures, queue.PublishFailure{
			Index: idx,
			Err: fmt.Errorf("sqs rejected entry: %s: %s",
				aws.ToString(failed.Code), aws.ToString(failed.Message)),
		})
	}

	return failures
}

// SendToDeadLetter sends an unprocessable message body to the dead-letter queue
func (c *Client) SendToDeadLetter(ctx context.Context, body, reason string, attempts int) error {
	if c.config.DeadLetterQueueURL == "" {
		return errors.New("dead-letter queue URL is not configured")
	}

	_, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.config.DeadLetterQueueURL),
		MessageBody: aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			AttrFailureReason: stringAttr(reason),
			AttrAttempts: {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.Itoa(attempts)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to dead-letter queue: %w", err)
	}

	return nil
}

func stringAttr(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}
