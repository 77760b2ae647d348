package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the handler's view of a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Handler processes one consumed message. Returning an error triggers
// redelivery; after the consumer's retry budget is exhausted the message is
// routed to the dead-letter topic instead.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// ConsumerConfig wires a group consumer.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	MaxAttempts int           // handler attempts per record before dead-lettering
	Backoff     time.Duration // delay between attempts
}

// Consumer runs a Kafka consumer group loop with commit-after-handle
// semantics. Offsets are committed only once a record is handled or
// dead-lettered, so a crash mid-handle redelivers the record.
type Consumer struct {
	client      *kgo.Client
	handler     Handler
	deadLetter  *Producer
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewConsumer connects a group consumer. deadLetter may be nil, in which case
// records that exhaust their retry budget are logged and committed.
func NewConsumer(cfg ConsumerConfig, handler Handler, deadLetter *Producer, logger *slog.Logger) (*Consumer, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	return &Consumer{
		client:      client,
		handler:     handler,
		deadLetter:  deadLetter,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}, nil
}

// Run polls and processes records until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var iterErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if iterErr != nil {
				return
			}
			iterErr = c.process(ctx, record)
		})
		if iterErr != nil {
			return iterErr
		}
	}
}

// process handles one record with in-place retries, then either commits or
// dead-letters it. An error return stops the consumer without committing so
// the record is redelivered after restart.
func (c *Consumer) process(ctx context.Context, record *kgo.Record) error {
	msg := &Message{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Key:       record.Key,
		Value:     record.Value,
	}

	var handleErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		handleErr = c.handler.Handle(ctx, msg)
		if handleErr == nil {
			break
		}
		c.logger.Warn("message handling failed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", handleErr,
		)
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}

	if handleErr != nil {
		if err := c.sendToDeadLetter(ctx, record, handleErr); err != nil {
			return err
		}
	}

	if err := c.client.CommitRecords(ctx, record); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, record *kgo.Record, cause error) error {
	if c.deadLetter == nil {
		c.logger.Error("no dead-letter topic configured, dropping message",
			"topic", record.Topic,
			"offset", record.Offset,
			"error", cause,
		)
		return nil
	}
	if err := c.deadLetter.Produce(ctx, record.Key, record.Value); err != nil {
		return fmt.Errorf("dead-letter %s/%d: %w", record.Topic, record.Offset, err)
	}
	c.logger.Warn("message moved to dead-letter topic",
		"topic", record.Topic,
		"offset", record.Offset,
		"dlq", c.deadLetter.Topic(),
		"error", cause,
	)
	return nil
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() { c.client.Close() }
