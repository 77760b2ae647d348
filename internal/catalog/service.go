package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auditflow/internal/audit"
	"auditflow/internal/tracker"
)

// ProductStore is the persistence surface the service drives inside each
// unit of work.
type ProductStore interface {
	Insert(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
}

// Service performs catalog mutations with audit capture around every save.
// Each operation runs in its own unit of work.
type Service struct {
	store    ProductStore
	registry *tracker.Registry
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(store ProductStore, registry *tracker.Registry, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{store: store, registry: registry, recorder: recorder, logger: logger}
}

func (s *Service) uow() *tracker.UnitOfWork {
	return tracker.NewUnitOfWork(s.registry, s.recorder, s.logger)
}

// Create inserts a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	uow := s.uow()
	uow.Add(p)
	return uow.Save(ctx, func(ctx context.Context) error {
		return s.store.Insert(ctx, p)
	})
}

// Update loads the product, applies the mutation, and saves the diff.
func (s *Service) Update(ctx context.Context, id uuid.UUID, mutate func(*Product)) (*Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	uow := s.uow()
	uow.Attach(p)

	mutate(p)
	p.UpdatedAt = time.Now().UTC()
	if err := uow.Update(p); err != nil {
		return nil, err
	}

	if err := uow.Save(ctx, func(ctx context.Context) error {
		return s.store.Update(ctx, p)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// SoftDelete flips the product's deletion flag. The audit records for this
// save are classified as soft deletes, not updates.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := s.Update(ctx, id, func(p *Product) {
		p.IsDeleted = true
	})
	return err
}

// Purge removes the product row outright, recording a hard delete.
func (s *Service) Purge(ctx context.Context, id uuid.UUID) error {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	uow := s.uow()
	uow.Delete(p)
	return uow.Save(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, p.ID)
	})
}
