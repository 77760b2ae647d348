// Package tracker is the change-tracking source feeding the audit pipeline:
// an explicit registry of auditable entity types and a snapshot-based unit of
// work that hands field-level entries to the extractor around each save.
package tracker

import (
	"fmt"
	"sync"
)

// Auditable is the capability an entity exposes to participate in change
// tracking. AuditFields returns the entity's logical field names with their
// stringified values; boolean fields must stringify via strconv.FormatBool so
// soft-delete transitions are recognizable.
type Auditable interface {
	AuditEntityName() string
	AuditFields() map[string]string
}

// Registration declares an entity type auditable and names its special
// fields. Declared once at startup; nothing is probed per call.
type Registration struct {
	// Name must match the entity's AuditEntityName.
	Name string
	// PrimaryKey is the field holding the entity's key; empty when the
	// entity declares none.
	PrimaryKey string
	// Redacted lists fields whose values are hidden behind the redaction
	// sentinel. The field names themselves are still audited.
	Redacted []string
	// SoftDeleteField is the boolean flag marking soft deletion; empty when
	// the entity cannot be soft-deleted.
	SoftDeleteField string
}

type registration struct {
	Registration
	redacted map[string]struct{}
}

// Registry holds the auditable entity registrations. The unit of work checks
// it before building entries, so the extractor never sees an unregistered
// type.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]registration)}
}

// Register declares an entity type auditable. Duplicate names are rejected so
// conflicting redaction sets cannot slip in.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("register entity: name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[reg.Name]; exists {
		return fmt.Errorf("register entity: %q already registered", reg.Name)
	}

	redacted := make(map[string]struct{}, len(reg.Redacted))
	for _, name := range reg.Redacted {
		redacted[name] = struct{}{}
	}
	r.byName[reg.Name] = registration{Registration: reg, redacted: redacted}
	return nil
}

func (r *Registry) lookup(name string) (registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	return reg, ok
}
