package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	envConfig "github.com/BarkinBalci/behavioral-analytics-service/internal/config"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.SendMessageOutput), args.Error(1)
}

func (m *MockAPI) SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.SendMessageBatchOutput), args.Error(1)
}

func (m *MockAPI) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockAPI) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageOutput), args.Error(1)
}

func testConfig() envConfig.SQS {
	return envConfig.SQS{
		QueueURL:           "http://localhost:9324/queue/events",
		DeadLetterQueueURL: "http://localhost:9324/queue/events-dlq",
		Region:             "us-east-1",
		EnqueueTimeoutMS:   2000,
	}
}

func makeEvents(n int) []*domain.Event {
	events := make([]*domain.Event, n)
	for i := range events {
		events[i] = &domain.Event{
			OrgID:      "org1",
			ProjectID:  "proj1",
			UserID:     fmt.Sprintf("user-%d", i),
			EventName:  "page_view",
			Timestamp:  time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
			ReceivedAt: time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC),
		}
	}
	return events
}

func TestPublishEvents_ChunksOfTen(t *testing.T) {
	api := new(MockAPI)
	api.On("SendMessageBatch", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageBatchInput) bool {
		return len(in.Entries) == 10
	})).Return(&sqs.SendMessageBatchOutput{}, nil).Twice()
	api.On("SendMessageBatch", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageBatchInput) bool {
		return len(in.Entries) == 3
	})).Return(&sqs.SendMessageBatchOutput{}, nil).Once()

	client := NewClientWithAPI(api, testConfig(), zap.NewNop())

	failures := client.PublishEvents(context.Background(), makeEvents(23))

	assert.Empty(t, failures)
	api.AssertExpectations(t)
}

func TestPublishEvents_MessageBody(t *testing.T) {
	api := new(MockAPI)
	var captured *sqs.SendMessageBatchInput
	api.On("SendMessageBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*sqs.SendMessageBatchInput) }).
		Return(&sqs.SendMessageBatchOutput{}, nil)

	client := NewClientWithAPI(api, testConfig(), zap.NewNop())
	events := makeEvents(1)
	events[0].Properties = domain.Properties{"device": "web"}

	require.Empty(t, client.PublishEvents(context.Background(), events))
	require.Len(t, captured.Entries, 1)

	entry := captured.Entries[0]
	assert.Equal(t, testConfig().QueueURL, aws.ToString(captured.QueueUrl))
	assert.Equal(t, "0", aws.ToString(entry.Id))
	assert.Equal(t, "page_view", aws.ToString(entry.MessageAttributes[AttrEventName].StringValue))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.MessageBody)), &decoded))
	assert.Equal(t, "user-0", decoded.UserID)
	assert.Equal(t, "web", decoded.Properties["device"])
	assert.Empty(t, decoded.EventID)
}

func TestPublishEvents_PartialFailure(t *testing.T) {
	api := new(MockAPI)
	api.On("SendMessageBatch", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageBatchInput) bool {
		return aws.ToString(in.Entries[0].Id) == "0"
	})).Return(&sqs.SendMessageBatchOutput{
		Failed: []types.BatchResultErrorEntry{
			{Id: aws.String("3"), Code: aws.String("InternalError"), Message: aws.String("try again")},
		},
	}, nil)
	api.On("SendMessageBatch", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageBatchInput) bool {
		return aws.ToString(in.Entries[0].Id) == "10"
	})).Return(nil, errors.New("timeout"))

	client := NewClientWithAPI(api, testConfig(), zap.NewNop())

	failures := client.PublishEvents(context.Background(), makeEvents(12))

	require.Len(t, failures, 3)
	assert.Equal(t, 3, failures[0].Index)
	assert.ErrorContains(t, failures[0].Err, "InternalError")
	assert.Equal(t, 10, failures[1].Index)
	assert.Equal(t, 11, failures[2].Index)
	assert.ErrorContains(t, failures[2].Err, "timeout")
}

func TestPublishEvents_BoundedByEnqueueTimeout(t *testing.T) {
	api := new(MockAPI)
	api.On("SendMessageBatch", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 2*time.Second
	}), mock.Anything).Return(&sqs.SendMessageBatchOutput{}, nil)

	client := NewClientWithAPI(api, testConfig(), zap.NewNop())

	assert.Empty(t, client.PublishEvents(context.Background(), makeEvents(1)))
	api.AssertExpectations(t)
}

func TestSendToDeadLetter(t *testing.T) {
	api := new(MockAPI)
	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
		return aws.ToString(in.QueueUrl) == testConfig().DeadLetterQueueURL &&
			aws.ToString(in.MessageBody) == `{"bad":` &&
			aws.ToString(in.MessageAttributes[AttrFailureReason].StringValue) == "malformed" &&
			aws.ToString(in.MessageAttributes[AttrAttempts].StringValue) == "1"
	})).Return(&sqs.SendMessageOutput{}, nil)

	client := NewClientWithAPI(api, testConfig(), zap.NewNop())

	require.NoError(t, client.SendToDeadLetter(context.Background(), `{"bad":`, "malformed", 1))
	api.AssertExpectations(t)
}

func TestSendToDeadLetter_Error(t *testing.T) {
	api := new(MockAPI)
	api.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	client := NewClientWithAPI(api, testConfig(), zap.NewNop())

	err := client.SendToDeadLetter(context.Background(), "{}", "store unavailable", 5)
	assert.ErrorContains(t, err, "dead-letter queue")
}
