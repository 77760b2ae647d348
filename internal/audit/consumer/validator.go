// Package consumer receives audit transaction messages from the channel,
// validates them, and maps valid messages onto the persisted ledger.
package consumer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"auditflow/internal/audit"
)

// ErrValidation marks a structurally invalid transaction message. Validation
// failures propagate (never swallowed) so the channel's redelivery and
// dead-letter machinery can act on them.
var ErrValidation = errors.New("invalid audit transaction message")

// Validate checks the structural and required-field invariants of a message.
// All problems are collected so the rejection names every violation at once.
func Validate(msg audit.TransactionMessage) error {
	var problems []string

	if msg.EventID == uuid.Nil {
		problems = append(problems, "eventId is required")
	}
	if msg.ActorID == "" {
		problems = append(problems, "actorId is required")
	}
	if msg.AuditSuccess && len(msg.Details) == 0 {
		// Only the failure variant may carry empty details.
		problems = append(problems, "at least one detail is required when auditSuccess is true")
	}

	for i, detail := range msg.Details {
		if detail.EntityName == "" {
			problems = append(problems, fmt.Sprintf("details[%d]: entityName is required", i))
		}
		if detail.PrimaryKeyValue == nil || *detail.PrimaryKeyValue == "" {
			problems = append(problems, fmt.Sprintf("details[%d]: primaryKeyValue is required", i))
		}
		if detail.PropertyName == "" {
			problems = append(problems, fmt.Sprintf("details[%d]: propertyName is required", i))
		}
		if !detail.TransactionType.Valid() {
			problems = append(problems, fmt.Sprintf("details[%d]: transactionType must be 1, 2, 3, or 4", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
