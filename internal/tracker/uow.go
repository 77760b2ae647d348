package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"auditflow/internal/audit"
)

// UnitOfWork is the scope of one logical save over business entities. It
// snapshots attached entities, classifies mutations, and drives the audit
// recorder around the business commit.
//
// Precondition: a unit of work is used by at most one save at a time. The
// pipeline documents this rather than enforcing it; concurrent saves must use
// separate unit-of-work instances.
type UnitOfWork struct {
	id       uuid.UUID
	registry *Registry
	recorder *audit.Recorder
	logger   *slog.Logger
	tracked  []*trackedEntity
}

type trackedEntity struct {
	entity   Auditable
	state    audit.EntryState
	original map[string]string
}

func NewUnitOfWork(registry *Registry, recorder *audit.Recorder, logger *slog.Logger) *UnitOfWork {
	return &UnitOfWork{
		id:       uuid.New(),
		registry: registry,
		recorder: recorder,
		logger:   logger,
	}
}

// ID is the opaque identity correlating this unit of work with its pending
// audit records.
func (u *UnitOfWork) ID() uuid.UUID { return u.id }

// Add tracks a new entity for insertion.
func (u *UnitOfWork) Add(entity Auditable) {
	u.tracked = append(u.tracked, &trackedEntity{
		entity: entity,
		state:  audit.EntryAdded,
	})
}

// Attach snapshots an existing entity's fields so later mutations can be
// diffed against them. Attach before mutating.
func (u *UnitOfWork) Attach(entity Auditable) {
	u.tracked = append(u.tracked, &trackedEntity{
		entity:   entity,
		state:    audit.EntryUnchanged,
		original: snapshot(entity),
	})
}

// Update marks a previously attached entity as modified.
func (u *UnitOfWork) Update(entity Auditable) error {
	t := u.find(entity)
	if t == nil || t.original == nil {
		return fmt.Errorf("update %s: entity not attached", entity.AuditEntityName())
	}
	t.state = audit.EntryModified
	return nil
}

// Delete marks an entity for removal. An unattached entity is snapshotted
// now so its final field values survive into the audit record.
func (u *UnitOfWork) Delete(entity Auditable) {
	if t := u.find(entity); t != nil {
		t.state = audit.EntryDeleted
		return
	}
	u.tracked = append(u.tracked, &trackedEntity{
		entity:   entity,
		state:    audit.EntryDeleted,
		original: snapshot(entity),
	})
}

// Save runs the business commit with audit capture around it. The capture
// and correlation steps run synchronously on the calling goroutine; only the
// publish hand-off does I/O, and it completes before Save returns.
//
// Error surface: a commit failure returns the commit error (a failure-variant
// audit message is still published); a publish failure after a successful
// commit returns an error wrapping audit.ErrPublish so callers can tell the
// two apart. A cancellation honored before publish suppresses the audit
// message entirely.
func (u *UnitOfWork) Save(ctx context.Context, commit func(ctx context.Context) error) error {
	u.recorder.ChangesCaptured(u.id, u.dirtyEntries())

	if err := commit(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			u.recorder.SaveCancelled(u.id)
			return err
		}
		if pubErr := u.recorder.SaveFailed(ctx, u.id, err); pubErr != nil {
			u.logger.Error("failed to publish failure-variant audit transaction",
				"unit_of_work", u.id,
				"error", pubErr,
			)
		}
		return err
	}

	u.markClean()
	return u.recorder.SaveCompleted(ctx, u.id)
}

// dirtyEntries builds the extractor's view of every added, modified, or
// deleted registered entity. Unregistered entities still save; they just
// produce no audit records.
func (u *UnitOfWork) dirtyEntries() []audit.Entry {
	var entries []audit.Entry
	for _, t := range u.tracked {
		if t.state == audit.EntryUnchanged {
			continue
		}
		reg, ok := u.registry.lookup(t.entity.AuditEntityName())
		if !ok {
			continue
		}

		var current map[string]string
		if t.state != audit.EntryDeleted {
			current = snapshot(t.entity)
		}
		entries = append(entries, newEntry(t.state, reg, t.original, current))
	}
	return entries
}

// markClean resets tracking after a successful commit: surviving entities
// become attached at their new values, deleted ones drop out.
func (u *UnitOfWork) markClean() {
	kept := u.tracked[:0]
	for _, t := range u.tracked {
		if t.state == audit.EntryDeleted {
			continue
		}
		t.state = audit.EntryUnchanged
		t.original = snapshot(t.entity)
		kept = append(kept, t)
	}
	u.tracked = kept
}

func (u *UnitOfWork) find(entity Auditable) *trackedEntity {
	for _, t := range u.tracked {
		if t.entity == entity {
			return t
		}
	}
	return nil
}

func snapshot(entity Auditable) map[string]string {
	fields := entity.AuditFields()
	copied := make(map[string]string, len(fields))
	for name, value := range fields {
		copied[name] = value
	}
	return copied
}
