package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"auditflow/internal/audit/store"
)

// Store keeps persisted transactions in memory for tests. Same idempotency
// contract as the Postgres writer: one row per event ID.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byEvent map[uuid.UUID]int64
	rows    []store.Transaction
}

func New() *Store {
	return &Store{byEvent: make(map[uuid.UUID]int64)}
}

func (s *Store) Persist(_ context.Context, tx store.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEvent[tx.EventID]; ok {
		return id, nil
	}
	s.nextID++
	s.byEvent[tx.EventID] = s.nextID
	s.rows = append(s.rows, tx)
	return s.nextID, nil
}

// All returns the stored transactions in insertion order.
func (s *Store) All() []store.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Transaction{}, s.rows...)
}

// ByEventID returns the stored transaction for an event, if any.
func (s *Store) ByEventID(eventID uuid.UUID) (store.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byEvent[eventID]; !ok {
		return store.Transaction{}, false
	}
	for _, tx := range s.rows {
		if tx.EventID == eventID {
			return tx, true
		}
	}
	return store.Transaction{}, false
}
