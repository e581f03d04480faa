package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

// ItemState is the lifecycle state of a single queued event
type ItemState int

const (
	StatePending ItemState = iota
	StateRetrying
	StatePersisted
	StateDeadLettered
)

func (s ItemState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRetrying:
		return "retrying"
	case StatePersisted:
		return "persisted"
	case StateDeadLettered:
		return "dead-lettered"
	default:
		return "unknown"
	}
}

// WorkerConfig configures the persist retry policy
type WorkerConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Worker persists envelopes with bounded retries
type Worker struct {
	repository repository.EventRepository
	counter    LiveCounter
	config     WorkerConfig
	metrics    *Metrics
	log        *zap.Logger
}

// NewWorker creates a new worker
func NewWorker(repo repository.EventRepository, counter LiveCounter, config WorkerConfig, metrics *Metrics, log *zap.Logger) *Worker {
	return &Worker{
		repository: repo,
		counter:    counter,
		config:     config,
		metrics:    metrics,
		log:        log,
	}
}

// Start processes envelopes until in is closed. Items still buffered after
// ctx is done are left in the queue for redelivery.
func (w *Worker) Start(ctx context.Context, in <-chan *Envelope) {
	for envelope := range in {
		if ctx.Err() != nil {
			continue
		}
		// an item that was picked up is finished even if shutdown starts meanwhile
		w.Process(context.WithoutCancel(ctx), envelope)
	}
}

// Process drives one envelope to a terminal state and returns it
func (w *Worker) Process(ctx context.Context, envelope *Envelope) ItemState {
	event := envelope.Event
	state := StatePending
	attempts := 0

	operation := func() error {
		attempts++
		err := w.repository.InsertEvent(ctx, event)
		if err != nil && attempts < w.config.MaxAttempts {
			state = StateRetrying
			w.metrics.Retries.Inc()
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		w.log.Warn("Failed to persist event, retrying",
			zap.String("event_id", event.EventID),
			zap.String("message_id", envelope.MessageID),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	err := backoff.RetryNotify(operation, w.policy(ctx), notify)
	if err == nil {
		state = StatePersisted
		w.metrics.Persisted.Inc()
		w.counter.Increment(event.EventName)

		if ackErr := envelope.Ack(ctx); ackErr != nil {
			// redelivery will store the event again
			w.metrics.AckFailures.Inc()
			w.log.Error("Failed to ack persisted event",
				zap.String("event_id", event.EventID),
				zap.String("message_id", envelope.MessageID),
				zap.Error(ackErr))
		}
		return state
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		w.log.Warn("Abandoning event, message will be redelivered",
			zap.String("message_id", envelope.MessageID),
			zap.Stringer("state", state),
			zap.Error(err))
		return state
	}

	if dlqErr := envelope.DeadLetter(ctx, ReasonRetriesExhausted, attempts); dlqErr != nil {
		w.log.Error("Failed to dead-letter event, leaving it in the queue",
			zap.String("event_id", event.EventID),
			zap.String("message_id", envelope.MessageID),
			zap.Int("attempts", attempts),
			zap.NamedError("persist_error", err),
			zap.Error(dlqErr))
		return state
	}

	w.log.Error("Event dead-lettered after exhausting retries",
		zap.String("event_id", event.EventID),
		zap.String("event_name", event.EventName),
		zap.Int("attempts", attempts),
		zap.Error(err))
	return StateDeadLettered
}

func (w *Worker) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.config.InitialBackoff
	b.MaxInterval = w.config.MaxBackoff
	b.MaxElapsedTime = 0

	retries := uint64(max(w.config.MaxAttempts-1, 0))
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}
