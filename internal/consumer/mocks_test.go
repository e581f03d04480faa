package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

const testQueueURL = "https://sqs.eu-central-1.amazonaws.com/123/test-queue"

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) InitSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockEventRepository) InsertEvent(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) FindEvents(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

func (m *MockEventRepository) FirstOccurrences(ctx context.Context, query repository.FirstOccurrenceQuery) (map[string]time.Time, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]time.Time), args.Error(1)
}

func (m *MockEventRepository) CountByBucket(ctx context.Context, query repository.BucketQuery) ([]repository.BucketCount, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.BucketCount), args.Error(1)
}

// MockDeadLetterPublisher is a mock implementation of queue.DeadLetterPublisher
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) SendToDeadLetter(ctx context.Context, body, reason string, attempts int) error {
	args := m.Called(ctx, body, reason, attempts)
	return args.Error(0)
}

// recordingCounter records live counter increments
type recordingCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingCounter() *recordingCounter {
	return &recordingCounter{counts: make(map[string]int)}
}

func (c *recordingCounter) Increment(eventName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[eventName]++
}

func (c *recordingCounter) Count(eventName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[eventName]
}
