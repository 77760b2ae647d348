// Package catalog holds the business entities whose mutations feed the audit
// pipeline. The catalog's HTTP surface is an external collaborator; only the
// persistence side lives here.
package catalog

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"auditflow/internal/tracker"
)

// Product is a catalog item. SupplierCode is commercially sensitive and is
// registered as redacted: its name appears in the ledger, its value never
// does.
type Product struct {
	ID           uuid.UUID
	Name         string
	Price        float64
	Description  string
	ImageURL     string
	Category     string
	Size         string
	SupplierCode string
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewProduct creates a product with a time-ordered ID.
func NewProduct(name string, price float64, description, imageURL, category, size string) *Product {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	return &Product{
		ID:          id,
		Name:        name,
		Price:       price,
		Description: description,
		ImageURL:    imageURL,
		Category:    category,
		Size:        size,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AuditEntityName implements tracker.Auditable.
func (p *Product) AuditEntityName() string { return "Product" }

// AuditFields implements tracker.Auditable. Timestamps are bookkeeping, not
// business state, and stay out of the ledger.
func (p *Product) AuditFields() map[string]string {
	return map[string]string{
		"Id":           p.ID.String(),
		"Name":         p.Name,
		"Price":        strconv.FormatFloat(p.Price, 'f', -1, 64),
		"Description":  p.Description,
		"ImageUrl":     p.ImageURL,
		"Category":     p.Category,
		"Size":         p.Size,
		"SupplierCode": p.SupplierCode,
		"IsDeleted":    strconv.FormatBool(p.IsDeleted),
	}
}

// Register declares the catalog's auditable entities. Called once at startup.
func Register(registry *tracker.Registry) error {
	return registry.Register(tracker.Registration{
		Name:            "Product",
		PrimaryKey:      "Id",
		Redacted:        []string{"SupplierCode"},
		SoftDeleteField: "IsDeleted",
	})
}
