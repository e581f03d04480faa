package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/config"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/queue"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/repository"
)

// Consumer orchestrates a pipeline of stages to process SQS messages:
// receiver -> parser -> pool of workers
type Consumer struct {
	receiver *Receiver
	parser   *ParserStage
	workers  []*Worker
	config   ReceiverConfig
	log      *zap.Logger
}

// NewConsumer creates a new consumer with a pipeline architecture
func NewConsumer(
	cfg *config.Config,
	queueConsumer queue.QueueConsumer,
	deadLetters queue.DeadLetterPublisher,
	repo repository.EventRepository,
	counter LiveCounter,
	metrics *Metrics,
	log *zap.Logger,
) *Consumer {
	receiverConfig := ReceiverConfig{
		MaxMessages:     10,
		WaitTimeSeconds: 20,
		BufferSize:      100,
		ErrorBackoff:    10 * time.Second,
	}

	workerConfig := WorkerConfig{
		MaxAttempts:    cfg.Consumer.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Consumer.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.Consumer.MaxBackoffMS) * time.Millisecond,
	}

	workers := make([]*Worker, max(cfg.Consumer.Workers, 1))
	for i := range workers {
		workers[i] = NewWorker(repo, counter, workerConfig, metrics, log.With(zap.Int("worker", i)))
	}

	return &Consumer{
		receiver: NewReceiver(queueConsumer, receiverConfig, metrics, log),
		parser:   NewParserStage(queueConsumer, deadLetters, NewJSONEventParser(), metrics, log),
		workers:  workers,
		config:   receiverConfig,
		log:      log,
	}
}

// Start runs the pipeline until ctx is done and every stage has drained
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan types.Message, c.config.BufferSize)
	envelopeChan := make(chan *Envelope, c.config.BufferSize)

	var g errgroup.Group

	g.Go(func() error {
		c.receiver.Start(ctx, messageChan)
		return nil
	})

	g.Go(func() error {
		c.parser.Start(ctx, messageChan, envelopeChan)
		return nil
	})

	for _, w := range c.workers {
		g.Go(func() error {
			w.Start(ctx, envelopeChan)
			return nil
		})
	}

	c.log.Info("Consumer pipeline started", zap.Int("workers", len(c.workers)))

	err := g.Wait()
	c.log.Info("Consumer pipeline stopped")
	return err
}
