package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"auditflow/internal/audit"
	"auditflow/internal/audit/metrics"
	"auditflow/internal/audit/store"
	"auditflow/internal/platform/kafka"
)

// Handler processes audit transaction messages: decode, validate, map, and
// persist. State machine per message:
//
//	Received -> Validating -> Valid -> Persisting -> Stored
//	                       -> Invalid -> Rejected (error path / dead letter)
//
// Invalid messages return ErrValidation-wrapped errors so the channel
// redelivers and eventually dead-letters them; they are never silently
// dropped.
type Handler struct {
	store   store.Store
	deduper Deduper
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithDeduper installs a fast-path duplicate filter in front of the store.
func WithDeduper(d Deduper) HandlerOption {
	return func(h *Handler) { h.deduper = d }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(s store.Store, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{store: s, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle consumes one message from the channel.
func (h *Handler) Handle(ctx context.Context, msg *kafka.Message) error {
	var transaction audit.TransactionMessage
	if err := json.Unmarshal(msg.Value, &transaction); err != nil {
		h.metrics.IncConsumed("invalid")
		return fmt.Errorf("%w: decode: %v", ErrValidation, err)
	}

	h.logger.Debug("received audit transaction",
		"event_id", transaction.EventID,
		"actor_id", transaction.ActorID,
		"details", len(transaction.Details),
	)

	if err := Validate(transaction); err != nil {
		h.metrics.IncConsumed("invalid")
		h.logger.Warn("rejecting audit transaction",
			"event_id", transaction.EventID,
			"error", err,
		)
		return err
	}

	// The mark is written only after a successful persist, so a hit here
	// always means the ledger already holds the row. A message must never be
	// skipped on dedupe state alone before its persist succeeded.
	if h.deduper != nil {
		seen, err := h.deduper.Seen(ctx, transaction.EventID)
		if err != nil {
			// The cache is advisory; the store's insert-if-absent decides.
			h.logger.Warn("dedupe cache unavailable, relying on store guard",
				"event_id", transaction.EventID,
				"error", err,
			)
		} else if seen {
			h.metrics.IncConsumed("duplicate")
			h.logger.Debug("skipping duplicate audit transaction",
				"event_id", transaction.EventID,
			)
			return nil
		}
	}

	start := time.Now()
	id, err := h.store.Persist(ctx, mapTransaction(transaction))
	if err != nil {
		h.metrics.IncConsumed("error")
		return fmt.Errorf("persist audit transaction %s: %w", transaction.EventID, err)
	}
	h.metrics.ObservePersistLatency(time.Since(start))
	h.metrics.IncConsumed("stored")

	if h.deduper != nil {
		if markErr := h.deduper.Mark(ctx, transaction.EventID); markErr != nil {
			// Worst case is one extra store round trip on redelivery.
			h.logger.Warn("failed to mark stored event in dedupe cache",
				"event_id", transaction.EventID,
				"error", markErr,
			)
		}
	}

	h.logger.Info("stored audit transaction",
		"event_id", transaction.EventID,
		"transaction_id", id,
		"details", len(transaction.Details),
	)
	return nil
}

// mapTransaction translates the wire message onto the persisted shape. The
// transaction type is carried over ordinally; both sides pin the same numeric
// values.
func mapTransaction(msg audit.TransactionMessage) store.Transaction {
	details := make([]store.Detail, 0, len(msg.Details))
	for _, d := range msg.Details {
		var primaryKey string
		if d.PrimaryKeyValue != nil {
			primaryKey = *d.PrimaryKeyValue
		}
		details = append(details, store.Detail{
			TransactionType: int(d.TransactionType),
			EntityName:      d.EntityName,
			PrimaryKeyValue: primaryKey,
			PropertyName:    d.PropertyName,
			OriginalValue:   d.OriginalValue,
			NewValue:        d.NewValue,
		})
	}
	return store.Transaction{
		EventID:      msg.EventID,
		ActorID:      msg.ActorID,
		EventDateUTC: msg.EventDateUTC,
		AuditSuccess: msg.AuditSuccess,
		ErrorMessage: msg.ErrorMessage,
		Details:      details,
	}
}
