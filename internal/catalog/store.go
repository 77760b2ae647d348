package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"auditflow/pkg/platform/sentinel"
)

// Store persists products through a pgx pool. Soft-deleted rows stay in the
// table; reads filter them out.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const productColumns = `id, name, price, description, image_url, category, size, supplier_code, is_deleted, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, p *Product) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.Name, p.Price, p.Description, p.ImageURL, p.Category, p.Size,
		p.SupplierCode, p.IsDeleted, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, p *Product) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, price = $3, description = $4, image_url = $5,
		    category = $6, size = $7, supplier_code = $8, is_deleted = $9,
		    updated_at = $10
		WHERE id = $1
	`, p.ID, p.Name, p.Price, p.Description, p.ImageURL, p.Category, p.Size,
		p.SupplierCode, p.IsDeleted, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update product %s: %w", p.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND NOT is_deleted
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.ImageURL,
		&p.Category, &p.Size, &p.SupplierCode, &p.IsDeleted,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get product %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

// Delete removes a product row outright. Most removals go through the
// soft-delete flag instead; this exists for purge-style operations.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete product %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// EnsureSchema creates the products table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id            UUID PRIMARY KEY,
			name          TEXT NOT NULL,
			price         DOUBLE PRECISION NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			image_url     TEXT NOT NULL DEFAULT '',
			category      TEXT NOT NULL DEFAULT '',
			size          TEXT NOT NULL DEFAULT '',
			supplier_code TEXT NOT NULL DEFAULT '',
			is_deleted    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	return nil
}
