package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrPublish marks a failure to hand a transaction message to the audit
// channel. Callers must be able to tell a publish failure apart from the
// failure of the business save itself, so every publisher error wraps this
// sentinel.
var ErrPublish = errors.New("audit publish failed")

// Publisher hands a built transaction message to the durable audit channel.
// The hand-off completes (or fails) before the triggering save returns, so a
// message is never silently dropped on process exit.
type Publisher interface {
	Publish(ctx context.Context, msg TransactionMessage) error
}

// producer is the slice of the platform Kafka producer the publisher needs.
type producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// KafkaPublisher serializes transaction messages and produces them to the
// audit topic, keyed by event ID so re-publishes of one event land on one
// partition.
type KafkaPublisher struct {
	producer producer
	logger   *slog.Logger
}

func NewKafkaPublisher(producer producer, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg TransactionMessage) error {
	// A cancelled save suppresses its audit message entirely.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal transaction %s: %w", ErrPublish, msg.EventID, err)
	}

	if err := p.producer.Produce(ctx, []byte(msg.EventID.String()), value); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	p.logger.Debug("published audit transaction",
		"event_id", msg.EventID,
		"actor_id", msg.ActorID,
		"success", msg.AuditSuccess,
		"details", len(msg.Details),
	)
	return nil
}
