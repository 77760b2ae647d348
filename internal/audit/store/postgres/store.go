package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auditflow/internal/audit/store"
)

// Store persists audit transactions to Postgres. One database transaction
// per message: the parent and all its details land together or not at all.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Persist writes the parent row and its details atomically. Insert-if-absent
// by event ID: when the event is already stored (at-least-once redelivery),
// nothing is inserted and the existing parent ID is returned.
func (s *Store) Persist(ctx context.Context, transaction store.Transaction) (int64, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin audit transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	var parentID int64
	err = dbTx.QueryRowContext(ctx, `
		INSERT INTO audit_transactions (event_id, actor_id, event_date_utc, audit_success, error_message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`, transaction.EventID, transaction.ActorID, transaction.EventDateUTC,
		transaction.AuditSuccess, transaction.ErrorMessage,
	).Scan(&parentID)

	if errors.Is(err, sql.ErrNoRows) {
		// Already stored by an earlier delivery; the ledger stays untouched.
		err = dbTx.QueryRowContext(ctx,
			`SELECT id FROM audit_transactions WHERE event_id = $1`,
			transaction.EventID,
		).Scan(&parentID)
		if err != nil {
			return 0, fmt.Errorf("look up existing audit transaction: %w", err)
		}
		return parentID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert audit transaction: %w", err)
	}

	for _, detail := range transaction.Details {
		_, err = dbTx.ExecContext(ctx, `
			INSERT INTO audit_transaction_details (
				transaction_id, transaction_type, entity_name,
				primary_key_value, property_name, original_value, new_value
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, parentID, detail.TransactionType, detail.EntityName,
			detail.PrimaryKeyValue, detail.PropertyName,
			nullable(detail.OriginalValue), nullable(detail.NewValue),
		)
		if err != nil {
			return 0, fmt.Errorf("insert audit detail %s.%s: %w",
				detail.EntityName, detail.PropertyName, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit audit transaction: %w", err)
	}
	return parentID, nil
}

// nullable maps a missing value to SQL NULL, keeping the null vs empty-string
// distinction intact.
func nullable(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
