package tracker

import (
	"sort"

	"auditflow/internal/audit"
)

// Entry is the extractor's view of one dirty entity: its state plus the
// original and current field snapshots. Field order is stable (sorted) so
// detail order is deterministic end to end.
type Entry struct {
	state    audit.EntryState
	reg      registration
	names    []string
	original map[string]string // nil for added entities
	current  map[string]string // nil for deleted entities
}

func newEntry(state audit.EntryState, reg registration, original, current map[string]string) *Entry {
	names := make(map[string]struct{}, len(original)+len(current))
	for name := range original {
		names[name] = struct{}{}
	}
	for name := range current {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	return &Entry{
		state:    state,
		reg:      reg,
		names:    sorted,
		original: original,
		current:  current,
	}
}

func (e *Entry) State() audit.EntryState { return e.state }

func (e *Entry) EntityName() string { return e.reg.Name }

// PrimaryKeyValue resolves the entity's key from the current snapshot,
// falling back to the original for deleted entities. Nil when the entity
// declares no primary key.
func (e *Entry) PrimaryKeyValue() *string {
	if e.reg.PrimaryKey == "" {
		return nil
	}
	if v, ok := e.current[e.reg.PrimaryKey]; ok {
		return &v
	}
	if v, ok := e.original[e.reg.PrimaryKey]; ok {
		return &v
	}
	return nil
}

func (e *Entry) PropertyNames() []string { return e.names }

func (e *Entry) OriginalValue(name string) *string {
	if v, ok := e.original[name]; ok {
		return &v
	}
	return nil
}

func (e *Entry) CurrentValue(name string) *string {
	if v, ok := e.current[name]; ok {
		return &v
	}
	return nil
}

func (e *Entry) Redacted(name string) bool {
	_, ok := e.reg.redacted[name]
	return ok
}

// SoftDeleted reports whether this modification flips the entity's
// soft-delete flag from false to true, which reclassifies every record of
// the entry as a soft delete.
func (e *Entry) SoftDeleted() bool {
	if e.state != audit.EntryModified || e.reg.SoftDeleteField == "" {
		return false
	}
	return e.original[e.reg.SoftDeleteField] == "false" &&
		e.current[e.reg.SoftDeleteField] == "true"
}
