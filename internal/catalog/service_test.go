package catalog_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditflow/internal/audit"
	"auditflow/internal/catalog"
	"auditflow/internal/tracker"
	"auditflow/pkg/platform/sentinel"
)

// fakeStore keeps products in memory and can fail on demand.
type fakeStore struct {
	products  map[uuid.UUID]*catalog.Product
	insertErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[uuid.UUID]*catalog.Product)}
}

func (s *fakeStore) Insert(_ context.Context, p *catalog.Product) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	copied := *p
	s.products[p.ID] = &copied
	return nil
}

func (s *fakeStore) Update(_ context.Context, p *catalog.Product) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	copied := *p
	s.products[p.ID] = &copied
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.products, id)
	return nil
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

type capturePublisher struct {
	messages []audit.TransactionMessage
}

func (p *capturePublisher) Publish(_ context.Context, msg audit.TransactionMessage) error {
	p.messages = append(p.messages, msg)
	return nil
}

func newService(t *testing.T, store *fakeStore) (*catalog.Service, *capturePublisher) {
	t.Helper()
	registry := tracker.NewRegistry()
	require.NoError(t, catalog.Register(registry))
	pub := &capturePublisher{}
	recorder := audit.NewRecorder(pub, audit.WithSystemActor("system"))
	return catalog.NewService(store, registry, recorder, slog.Default()), pub
}

func seedProduct(t *testing.T, store *fakeStore) *catalog.Product {
	t.Helper()
	p := catalog.NewProduct("Keyboard", 10, "Mechanical", "http://img", "Peripherals", "M")
	p.SupplierCode = "SUP-001"
	require.NoError(t, store.Insert(context.Background(), p))
	return p
}

func detailsByProperty(msg audit.TransactionMessage) map[string]audit.ChangeRecord {
	byName := make(map[string]audit.ChangeRecord, len(msg.Details))
	for _, d := range msg.Details {
		byName[d.PropertyName] = d
	}
	return byName
}

func TestService_CreateAuditsEveryField(t *testing.T) {
	store := newFakeStore()
	svc, pub := newService(t, store)

	p := catalog.NewProduct("Keyboard", 10, "Mechanical", "http://img", "Peripherals", "M")
	require.NoError(t, svc.Create(context.Background(), p))

	_, stored := store.products[p.ID]
	assert.True(t, stored)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.True(t, msg.AuditSuccess)
	require.Len(t, msg.Details, 9, "every audited field of a new product is recorded")

	byName := detailsByProperty(msg)
	for property, d := range byName {
		assert.Equal(t, audit.TransactionInsert, d.TransactionType, property)
		require.NotNil(t, d.PrimaryKeyValue, property)
		assert.Equal(t, p.ID.String(), *d.PrimaryKeyValue, property)
	}
	assert.Equal(t, "Keyboard", *byName["Name"].NewValue)
	assert.Equal(t, "10", *byName["Price"].NewValue)
}

func TestService_UpdatePriceEmitsSingleRecord(t *testing.T) {
	store := newFakeStore()
	svc, pub := newService(t, store)
	p := seedProduct(t, store)

	updated, err := svc.Update(context.Background(), p.ID, func(p *catalog.Product) {
		p.Price = 12
	})
	require.NoError(t, err)
	assert.Equal(t, float64(12), updated.Price)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	require.Len(t, msg.Details, 1, "only the changed field is recorded")

	d := msg.Details[0]
	assert.Equal(t, audit.TransactionUpdate, d.TransactionType)
	assert.Equal(t, "Product", d.EntityName)
	assert.Equal(t, "Price", d.PropertyName)
	assert.Equal(t, "10", *d.OriginalValue)
	assert.Equal(t, "12", *d.NewValue)
}

func TestService_SupplierCodeIsRedacted(t *testing.T) {
	store := newFakeStore()
	svc, pub := newService(t, store)
	p := seedProduct(t, store)

	_, err := svc.Update(context.Background(), p.ID, func(p *catalog.Product) {
		p.SupplierCode = "SUP-002"
	})
	require.NoError(t, err)

	require.Len(t, pub.messages, 1)
	byName := detailsByProperty(pub.messages[0])
	d, ok := byName["SupplierCode"]
	require.True(t, ok, "the field name itself is still audited")
	assert.Equal(t, audit.RedactedValue, *d.OriginalValue)
	assert.Equal(t, audit.RedactedValue, *d.NewValue)
}

func TestService_SoftDeleteReclassifiesAsSoftDelete(t *testing.T) {
	store := newFakeStore()
	svc, pub := newService(t, store)
	p := seedProduct(t, store)

	require.NoError(t, svc.SoftDelete(context.Background(), p.ID))
	assert.True(t, store.products[p.ID].IsDeleted)

	require.Len(t, pub.messages, 1)
	require.NotEmpty(t, pub.messages[0].Details)
	for _, d := range pub.messages[0].Details {
		assert.Equal(t, audit.TransactionSoftDelete, d.TransactionType)
	}
}

func TestService_PurgeRecordsHardDelete(t *testing.T) {
	store := newFakeStore()
	svc, pub := newService(t, store)
	p := seedProduct(t, store)

	require.NoError(t, svc.Purge(context.Background(), p.ID))
	_, remaining := store.products[p.ID]
	assert.False(t, remaining)

	require.Len(t, pub.messages, 1)
	byName := detailsByProperty(pub.messages[0])
	d := byName["Name"]
	assert.Equal(t, audit.TransactionDelete, d.TransactionType)
	assert.Equal(t, "Keyboard", *d.OriginalValue)
	assert.Nil(t, d.NewValue)
}

func TestService_FailedInsertPublishesFailureVariant(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("duplicate key value")
	svc, pub := newService(t, store)

	p := catalog.NewProduct("Keyboard", 10, "", "", "", "")
	err := svc.Create(context.Background(), p)
	require.ErrorIs(t, err, store.insertErr)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.False(t, msg.AuditSuccess)
	assert.Equal(t, "duplicate key value", msg.ErrorMessage)
	assert.Empty(t, msg.Details)
}

func TestService_UpdateMissingProductReturnsNotFound(t *testing.T) {
	store := newFakeStore()
	svc, pub := newService(t, store)

	_, err := svc.Update(context.Background(), uuid.New(), func(p *catalog.Product) {
		p.Price = 99
	})
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Empty(t, pub.messages, "nothing was captured, nothing is published")
}

func TestService_NoopUpdatePublishesNothing(t *testing.T) {
	store := newFakeStore()
	svc, pub := newService(t, store)
	p := seedProduct(t, store)

	_, err := svc.Update(context.Background(), p.ID, func(*catalog.Product) {})
	require.NoError(t, err)

	assert.Empty(t, pub.messages, "a save that changes no audited field emits no message")
}
