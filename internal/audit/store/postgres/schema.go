package postgres

import (
	"context"
	"fmt"
)

// schema is the audit ledger DDL. The parent row owns its details; deleting a
// parent cascades, although the pipeline itself never deletes either.
const schema = `
CREATE TABLE IF NOT EXISTS audit_transactions (
	id             BIGSERIAL PRIMARY KEY,
	event_id       UUID NOT NULL UNIQUE,
	actor_id       TEXT NOT NULL,
	event_date_utc TIMESTAMPTZ NOT NULL,
	audit_success  BOOLEAN NOT NULL DEFAULT TRUE,
	error_message  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_transaction_details (
	id                BIGSERIAL PRIMARY KEY,
	transaction_id    BIGINT NOT NULL REFERENCES audit_transactions(id) ON DELETE CASCADE,
	transaction_type  INT NOT NULL,
	entity_name       VARCHAR(255) NOT NULL,
	primary_key_value TEXT NOT NULL,
	property_name     VARCHAR(255) NOT NULL,
	original_value    TEXT,
	new_value         TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_details_transaction_id
	ON audit_transaction_details (transaction_id);
`

// EnsureSchema creates the ledger tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}
