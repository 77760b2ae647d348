// Package audit implements the change capture pipeline: field-level diffs are
// extracted from a unit of work's tracked entries, correlated per save
// attempt, and published as one transaction message to the audit channel.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// RedactedValue replaces both sides of a diff for fields declared
// non-auditable. The field name is still recorded, only its value is hidden.
const RedactedValue = "XXX"

// TransactionType classifies a single field-level change. The numeric values
// are the wire and storage representation; they are pinned explicitly because
// reordering them would corrupt the meaning of historical records.
type TransactionType int

const (
	TransactionUnknown    TransactionType = 0
	TransactionInsert     TransactionType = 1
	TransactionUpdate     TransactionType = 2
	TransactionDelete     TransactionType = 3
	TransactionSoftDelete TransactionType = 4
)

// Valid reports whether t is one of the defined, non-default values.
func (t TransactionType) Valid() bool {
	return t >= TransactionInsert && t <= TransactionSoftDelete
}

func (t TransactionType) String() string {
	switch t {
	case TransactionInsert:
		return "insert"
	case TransactionUpdate:
		return "update"
	case TransactionDelete:
		return "delete"
	case TransactionSoftDelete:
		return "soft_delete"
	default:
		return "unknown"
	}
}

// ChangeRecord is one field-level before/after diff attributable to one
// entity instance.
//
// Invariants maintained by the extractor: inserts carry no original value,
// deletes carry no new value, and updates are only emitted when the two
// sides differ.
type ChangeRecord struct {
	TransactionType TransactionType `json:"transactionType"`
	EntityName      string          `json:"entityName"`
	PrimaryKeyValue *string         `json:"primaryKeyValue"`
	PropertyName    string          `json:"propertyName"`
	OriginalValue   *string         `json:"originalValue"`
	NewValue        *string         `json:"newValue"`
}

// TransactionMessage is the wire contract carried by the audit channel: the
// aggregate of all change records (or a failure indicator) for one save
// attempt. Immutable once built; EventID is the idempotency key downstream.
type TransactionMessage struct {
	EventID      uuid.UUID      `json:"eventId"`
	EventDateUTC time.Time      `json:"eventDateUtc"`
	ActorID      string         `json:"actorId"`
	AuditSuccess bool           `json:"auditSuccess"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Details      []ChangeRecord `json:"details"`
}
