package audit

import (
	"sync"

	"github.com/google/uuid"
)

// Aggregator correlates the change records produced during one logical save
// with the unit of work that produced them. State is explicit and owned: an
// entry is created on first capture and removed exactly once per save
// attempt, on every exit path.
//
// The map is safe for concurrent saves over distinct unit-of-work IDs. A
// single unit of work is assumed to run at most one save at a time; that is a
// documented precondition of the tracker, not something enforced here.
type Aggregator struct {
	mu      sync.Mutex
	pending map[uuid.UUID][]ChangeRecord
}

func NewAggregator() *Aggregator {
	return &Aggregator{pending: make(map[uuid.UUID][]ChangeRecord)}
}

// Capture appends records for an in-flight save. Capturing zero records is a
// no-op so a save without auditable changes never creates correlation state.
func (a *Aggregator) Capture(unitOfWorkID uuid.UUID, records []ChangeRecord) {
	if len(records) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[unitOfWorkID] = append(a.pending[unitOfWorkID], records...)
}

// Complete removes and returns the records accumulated for the unit of work.
// ok is false when nothing was accumulated, in which case no message must be
// published for this save.
func (a *Aggregator) Complete(unitOfWorkID uuid.UUID) (records []ChangeRecord, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	records, ok = a.pending[unitOfWorkID]
	delete(a.pending, unitOfWorkID)
	return records, ok && len(records) > 0
}

// Discard drops any accumulated records without producing them. Used on the
// failure and cancellation paths so state never leaks across attempts.
func (a *Aggregator) Discard(unitOfWorkID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, unitOfWorkID)
}

// Len reports the number of in-flight correlations. Exposed for tests and
// leak checks.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
