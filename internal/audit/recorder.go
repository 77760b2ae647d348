package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"auditflow/internal/audit/metrics"
	"auditflow/pkg/requestcontext"
)

// Recorder drives the capture pipeline around a unit of work's save
// lifecycle: extract and correlate before the business commit, build and
// publish exactly one transaction message after it. One event ID is generated
// per save attempt and becomes the idempotency key downstream.
type Recorder struct {
	aggregator    *Aggregator
	publisher     Publisher
	logger        *slog.Logger
	metrics       *metrics.Metrics
	systemActorID string
	newEventID    func() uuid.UUID
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a logger for pipeline diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithSystemActor sets the actor recorded for saves that carry no identity.
func WithSystemActor(actorID string) Option {
	return func(r *Recorder) { r.systemActorID = actorID }
}

// WithEventIDFunc overrides event ID generation. Tests use this for
// deterministic IDs.
func WithEventIDFunc(fn func() uuid.UUID) Option {
	return func(r *Recorder) { r.newEventID = fn }
}

func NewRecorder(publisher Publisher, opts ...Option) *Recorder {
	r := &Recorder{
		aggregator:    NewAggregator(),
		publisher:     publisher,
		logger:        slog.Default(),
		systemActorID: "system",
		newEventID:    newEventID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newEventID produces a time-ordered UUID so the ledger sorts by creation.
func newEventID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// ChangesCaptured extracts field-level diffs from the tracked entries and
// correlates them with the in-flight save. Runs synchronously on the saving
// goroutine, inside the business transaction boundary. Returns the number of
// records captured.
func (r *Recorder) ChangesCaptured(unitOfWorkID uuid.UUID, entries []Entry) int {
	records := Extract(entries)
	r.aggregator.Capture(unitOfWorkID, records)
	r.metrics.AddRecordsExtracted(len(records))
	return len(records)
}

// SaveCompleted consumes the correlation entry and publishes the success
// variant. A save that accumulated no records publishes nothing.
func (r *Recorder) SaveCompleted(ctx context.Context, unitOfWorkID uuid.UUID) error {
	records, ok := r.aggregator.Complete(unitOfWorkID)
	if !ok {
		return nil
	}

	msg := TransactionMessage{
		EventID:      r.newEventID(),
		EventDateUTC: requestcontext.Now(ctx).UTC(),
		ActorID:      r.actor(ctx),
		AuditSuccess: true,
		Details:      records,
	}
	return r.publish(ctx, msg)
}

// SaveFailed clears the correlation entry and publishes the failure variant.
// The failure message is published regardless of whether any records had been
// accumulated: the ledger reflects failed mutation attempts too.
func (r *Recorder) SaveFailed(ctx context.Context, unitOfWorkID uuid.UUID, saveErr error) error {
	r.aggregator.Discard(unitOfWorkID)

	msg := TransactionMessage{
		EventID:      r.newEventID(),
		EventDateUTC: requestcontext.Now(ctx).UTC(),
		ActorID:      r.actor(ctx),
		AuditSuccess: false,
		ErrorMessage: saveErr.Error(),
		Details:      []ChangeRecord{},
	}
	return r.publish(ctx, msg)
}

// SaveCancelled suppresses the audit message for a save whose cancellation
// was honored before publish. No partial-attempt audit is recorded.
func (r *Recorder) SaveCancelled(unitOfWorkID uuid.UUID) {
	r.aggregator.Discard(unitOfWorkID)
}

func (r *Recorder) publish(ctx context.Context, msg TransactionMessage) error {
	if err := r.publisher.Publish(ctx, msg); err != nil {
		r.metrics.IncPublished("error")
		r.logger.Error("failed to publish audit transaction",
			"event_id", msg.EventID,
			"error", err,
		)
		return err
	}
	r.metrics.IncPublished("ok")
	return nil
}

func (r *Recorder) actor(ctx context.Context) string {
	if actorID := requestcontext.ActorID(ctx); actorID != "" {
		return actorID
	}
	return r.systemActorID
}

// Pending reports in-flight correlation entries; used by tests to assert the
// state never leaks across save attempts.
func (r *Recorder) Pending() int { return r.aggregator.Len() }
