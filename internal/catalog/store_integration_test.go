//go:build integration

package catalog_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"auditflow/internal/catalog"
	"auditflow/pkg/platform/sentinel"
	"auditflow/pkg/testutil/containers"
)

type CatalogStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	pool     *pgxpool.Pool
	store    *catalog.Store
}

func TestCatalogStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CatalogStoreSuite))
}

func (s *CatalogStoreSuite) SetupSuite() {
	ctx := context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())

	pool, err := pgxpool.New(ctx, s.postgres.DSN)
	s.Require().NoError(err)
	s.pool = pool
	s.T().Cleanup(pool.Close)

	s.store = catalog.NewStore(pool)
	s.Require().NoError(s.store.EnsureSchema(ctx))
}

func (s *CatalogStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "products"))
}

func (s *CatalogStoreSuite) TestInsertAndGet() {
	ctx := context.Background()
	p := catalog.NewProduct("Keyboard", 10, "Mechanical", "http://img", "Peripherals", "M")
	p.SupplierCode = "SUP-001"

	s.Require().NoError(s.store.Insert(ctx, p))

	got, err := s.store.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.Name, got.Name)
	s.Equal(p.Price, got.Price)
	s.Equal(p.SupplierCode, got.SupplierCode)
	s.False(got.IsDeleted)
}

func (s *CatalogStoreSuite) TestGetMissingReturnsNotFound() {
	_, err := s.store.Get(context.Background(), uuid.New())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CatalogStoreSuite) TestUpdatePersistsChanges() {
	ctx := context.Background()
	p := catalog.NewProduct("Keyboard", 10, "", "", "", "")
	s.Require().NoError(s.store.Insert(ctx, p))

	p.Price = 12
	s.Require().NoError(s.store.Update(ctx, p))

	got, err := s.store.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(float64(12), got.Price)
}

func (s *CatalogStoreSuite) TestUpdateMissingReturnsNotFound() {
	p := catalog.NewProduct("Ghost", 1, "", "", "", "")
	s.Require().ErrorIs(s.store.Update(context.Background(), p), sentinel.ErrNotFound)
}

func (s *CatalogStoreSuite) TestSoftDeletedRowsAreHiddenFromReads() {
	ctx := context.Background()
	p := catalog.NewProduct("Keyboard", 10, "", "", "", "")
	s.Require().NoError(s.store.Insert(ctx, p))

	p.IsDeleted = true
	s.Require().NoError(s.store.Update(ctx, p))

	_, err := s.store.Get(ctx, p.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// The row itself survives in the table.
	var count int
	s.Require().NoError(s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE id = $1`, p.ID).Scan(&count))
	s.Equal(1, count)
}

func (s *CatalogStoreSuite) TestDeleteRemovesRow() {
	ctx := context.Background()
	p := catalog.NewProduct("Keyboard", 10, "", "", "", "")
	s.Require().NoError(s.store.Insert(ctx, p))

	s.Require().NoError(s.store.Delete(ctx, p.ID))
	s.Require().ErrorIs(s.store.Delete(ctx, p.ID), sentinel.ErrNotFound)

	var count int
	s.Require().NoError(s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products`).Scan(&count))
	s.Zero(count)
}
