// Package store defines the persisted shape of the audit ledger and the
// writer contract the consumer relies on.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transaction is one validated save attempt ready for persistence: a parent
// row owning its detail rows. The ledger is append-only; transactions are
// never updated or deleted by the pipeline.
type Transaction struct {
	EventID      uuid.UUID
	ActorID      string
	EventDateUTC time.Time
	AuditSuccess bool
	ErrorMessage string
	Details      []Detail
}

// Detail is one persisted field-level change. Nil OriginalValue/NewValue
// persist as SQL NULL; the null/empty-string distinction is preserved
// exactly.
type Detail struct {
	TransactionType int
	EntityName      string
	PrimaryKeyValue string
	PropertyName    string
	OriginalValue   *string
	NewValue        *string
}

// Store writes validated transactions. Persist is atomic (parent and details
// land together or not at all) and idempotent by event ID: re-persisting an
// already-stored event returns its existing ID without inserting anything.
// Transient errors propagate so the channel's redelivery semantics apply; no
// retry loop lives here.
type Store interface {
	Persist(ctx context.Context, tx Transaction) (int64, error)
}
