package audit

// EntryState mirrors the unit of work's view of a tracked entity.
type EntryState int

const (
	EntryUnchanged EntryState = iota
	EntryAdded
	EntryModified
	EntryDeleted
)

// Entry is the view of one dirty entity the change-tracking source hands to
// the extractor. The source performs the auditable-capability check before
// building entries; the extractor never probes entity types itself.
//
// OriginalValue and CurrentValue return nil when the entity holds no value
// for the field on that side. PrimaryKeyValue returns nil when the entity
// declares no primary key.
type Entry interface {
	State() EntryState
	EntityName() string
	PrimaryKeyValue() *string
	PropertyNames() []string
	OriginalValue(name string) *string
	CurrentValue(name string) *string
	Redacted(name string) bool
	SoftDeleted() bool
}

// Extract flattens the tracked entries of one save attempt into ordered
// field-level change records. Pure function of its input: no correlation
// state is touched here.
func Extract(entries []Entry) []ChangeRecord {
	var records []ChangeRecord
	for _, entry := range entries {
		records = append(records, extractEntry(entry)...)
	}
	return records
}

func extractEntry(entry Entry) []ChangeRecord {
	transactionType := toTransactionType(entry.State())
	if transactionType == TransactionUnknown {
		return nil
	}
	if entry.State() == EntryModified && entry.SoftDeleted() {
		transactionType = TransactionSoftDelete
	}

	entityName := entry.EntityName()
	primaryKey := entry.PrimaryKeyValue()

	var records []ChangeRecord
	for _, name := range entry.PropertyNames() {
		original, current := sideValues(entry, name)

		// No-op diffs are not recorded.
		if entry.State() == EntryModified && equalValues(original, current) {
			continue
		}

		if entry.Redacted(name) {
			// Both sides carry the sentinel regardless of operation type so
			// the real value never leaves the process, not even as absence.
			sentinel := RedactedValue
			original, current = &sentinel, &sentinel
		}

		records = append(records, ChangeRecord{
			TransactionType: transactionType,
			EntityName:      entityName,
			PrimaryKeyValue: primaryKey,
			PropertyName:    name,
			OriginalValue:   original,
			NewValue:        current,
		})
	}
	return records
}

func toTransactionType(state EntryState) TransactionType {
	switch state {
	case EntryAdded:
		return TransactionInsert
	case EntryModified:
		return TransactionUpdate
	case EntryDeleted:
		return TransactionDelete
	default:
		return TransactionUnknown
	}
}

func sideValues(entry Entry, name string) (original, current *string) {
	switch entry.State() {
	case EntryAdded:
		return nil, entry.CurrentValue(name)
	case EntryModified:
		return entry.OriginalValue(name), entry.CurrentValue(name)
	case EntryDeleted:
		return entry.OriginalValue(name), nil
	default:
		return nil, nil
	}
}

func equalValues(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
