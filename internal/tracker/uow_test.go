package tracker_test

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditflow/internal/audit"
	"auditflow/internal/tracker"
)

// widget is a minimal auditable entity for tracker tests.
type widget struct {
	ID        string
	Name      string
	Price     int
	Secret    string
	IsDeleted bool
}

func (w *widget) AuditEntityName() string { return "Widget" }

func (w *widget) AuditFields() map[string]string {
	return map[string]string{
		"Id":        w.ID,
		"Name":      w.Name,
		"Price":     strconv.Itoa(w.Price),
		"Secret":    w.Secret,
		"IsDeleted": strconv.FormatBool(w.IsDeleted),
	}
}

type capturePublisher struct {
	messages []audit.TransactionMessage
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, msg audit.TransactionMessage) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func newFixture(t *testing.T) (*tracker.Registry, *audit.Recorder, *capturePublisher) {
	t.Helper()
	registry := tracker.NewRegistry()
	require.NoError(t, registry.Register(tracker.Registration{
		Name:            "Widget",
		PrimaryKey:      "Id",
		Redacted:        []string{"Secret"},
		SoftDeleteField: "IsDeleted",
	}))
	pub := &capturePublisher{}
	recorder := audit.NewRecorder(pub, audit.WithSystemActor("system"))
	return registry, recorder, pub
}

func noopCommit(context.Context) error { return nil }

func detailsByProperty(msg audit.TransactionMessage) map[string]audit.ChangeRecord {
	byName := make(map[string]audit.ChangeRecord, len(msg.Details))
	for _, d := range msg.Details {
		byName[d.PropertyName] = d
	}
	return byName
}

func TestUnitOfWork_AddPublishesInsertRecords(t *testing.T) {
	registry, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	w := &widget{ID: "W1", Name: "Widget", Price: 10, Secret: "s3cret"}
	uow.Add(w)
	require.NoError(t, uow.Save(context.Background(), noopCommit))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.True(t, msg.AuditSuccess)
	assert.Equal(t, "system", msg.ActorID)
	require.Len(t, msg.Details, 5)

	byName := detailsByProperty(msg)
	for property, d := range byName {
		assert.Equal(t, audit.TransactionInsert, d.TransactionType, property)
		assert.Equal(t, "W1", *d.PrimaryKeyValue)
	}
	assert.Equal(t, "Widget", *byName["Name"].NewValue)
	assert.Equal(t, audit.RedactedValue, *byName["Secret"].NewValue)
	assert.Equal(t, audit.RedactedValue, *byName["Secret"].OriginalValue)
}

func TestUnitOfWork_UpdateEmitsOnlyChangedProperties(t *testing.T) {
	registry, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	w := &widget{ID: "W1", Name: "Widget", Price: 10}
	uow.Attach(w)
	w.Price = 12
	require.NoError(t, uow.Update(w))
	require.NoError(t, uow.Save(context.Background(), noopCommit))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	require.Len(t, msg.Details, 1, "unchanged properties produce no records")

	d := msg.Details[0]
	assert.Equal(t, audit.TransactionUpdate, d.TransactionType)
	assert.Equal(t, "Price", d.PropertyName)
	assert.Equal(t, "10", *d.OriginalValue)
	assert.Equal(t, "12", *d.NewValue)
}

func TestUnitOfWork_UpdateRequiresAttach(t *testing.T) {
	registry, recorder, _ := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	err := uow.Update(&widget{ID: "W1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not attached")
}

func TestUnitOfWork_SoftDeleteReclassifiesRecords(t *testing.T) {
	registry, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	w := &widget{ID: "W2", Name: "Widget"}
	uow.Attach(w)
	w.IsDeleted = true
	require.NoError(t, uow.Update(w))
	require.NoError(t, uow.Save(context.Background(), noopCommit))

	require.Len(t, pub.messages, 1)
	require.NotEmpty(t, pub.messages[0].Details)
	for _, d := range pub.messages[0].Details {
		assert.Equal(t, audit.TransactionSoftDelete, d.TransactionType)
	}
}

func TestUnitOfWork_DeleteEmitsDeleteRecords(t *testing.T) {
	registry, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	w := &widget{ID: "W3", Name: "Widget", Price: 10}
	uow.Delete(w)
	require.NoError(t, uow.Save(context.Background(), noopCommit))

	require.Len(t, pub.messages, 1)
	byName := detailsByProperty(pub.messages[0])
	d := byName["Name"]
	assert.Equal(t, audit.TransactionDelete, d.TransactionType)
	assert.Equal(t, "Widget", *d.OriginalValue)
	assert.Nil(t, d.NewValue)
}

func TestUnitOfWork_NoChangesPublishesNothing(t *testing.T) {
	registry, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	w := &widget{ID: "W1", Name: "Widget"}
	uow.Attach(w)
	require.NoError(t, uow.Save(context.Background(), noopCommit))

	assert.Empty(t, pub.messages, "a save with zero auditable changes emits no message")
	assert.Equal(t, 0, recorder.Pending())
}

func TestUnitOfWork_UnregisteredEntitySavesWithoutAudit(t *testing.T) {
	_, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(tracker.NewRegistry(), recorder, slog.Default())
	uow.Add(&widget{ID: "W9"})

	committed := false
	require.NoError(t, uow.Save(context.Background(), func(context.Context) error {
		committed = true
		return nil
	}))

	assert.True(t, committed, "the business write still happens")
	assert.Empty(t, pub.messages)
}

func TestUnitOfWork_FailedCommitPublishesFailureVariant(t *testing.T) {
	registry, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	uow.Add(&widget{ID: "W1", Name: "Widget"})
	commitErr := errors.New("unique constraint violated")
	err := uow.Save(context.Background(), func(context.Context) error { return commitErr })

	require.ErrorIs(t, err, commitErr)
	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.False(t, msg.AuditSuccess)
	assert.Equal(t, "unique constraint violated", msg.ErrorMessage)
	assert.Empty(t, msg.Details)
	assert.Equal(t, 0, recorder.Pending())
}

func TestUnitOfWork_CancelledCommitSuppressesAudit(t *testing.T) {
	registry, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	uow.Add(&widget{ID: "W1", Name: "Widget"})
	err := uow.Save(context.Background(), func(ctx context.Context) error {
		return context.Canceled
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.messages, "no partial-attempt audit for a cancelled save")
	assert.Equal(t, 0, recorder.Pending())
}

func TestUnitOfWork_PublishFailureIsDistinctFromSaveFailure(t *testing.T) {
	registry, _, _ := newFixture(t)
	recorder := audit.NewRecorder(audit.NewKafkaPublisher(failProducer{}, slog.Default()))
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())
	uow.Add(&widget{ID: "W1", Name: "Widget"})

	committed := false
	err := uow.Save(context.Background(), func(context.Context) error {
		committed = true
		return nil
	})

	assert.True(t, committed, "the business commit succeeded")
	require.ErrorIs(t, err, audit.ErrPublish)
}

type failProducer struct{}

func (failProducer) Produce(context.Context, []byte, []byte) error {
	return errors.New("broker down")
}

func TestUnitOfWork_SecondSaveAfterUpdateDiffsFromNewBaseline(t *testing.T) {
	registry, recorder, pub := newFixture(t)
	uow := tracker.NewUnitOfWork(registry, recorder, slog.Default())

	w := &widget{ID: "W1", Name: "Widget", Price: 10}
	uow.Attach(w)
	w.Price = 12
	require.NoError(t, uow.Update(w))
	require.NoError(t, uow.Save(context.Background(), noopCommit))

	w.Price = 15
	require.NoError(t, uow.Update(w))
	require.NoError(t, uow.Save(context.Background(), noopCommit))

	require.Len(t, pub.messages, 2)
	d := pub.messages[1].Details[0]
	assert.Equal(t, "12", *d.OriginalValue, "the second save diffs against the committed baseline")
	assert.Equal(t, "15", *d.NewValue)
}
