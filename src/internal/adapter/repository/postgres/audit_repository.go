package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/google/uuid"
)

var _ repo_interfaces.AuditRepository = (*AuditRepository)(nil)

// AuditRepository is append-only by construction: the table has no update
// or delete path anywhere in the codebase.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	const query = `
INSERT INTO audit_events (id, transaction_id, from_status, to_status, actor, reason)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		event.ID,
		event.TransactionID,
		event.FromStatus,
		event.ToStatus,
		event.Actor,
		event.Reason,
	).Scan(&event.CreatedAt); err != nil {
		return domain.AuditEvent{}, fmt.Errorf("append audit event: %w", translateError(err))
	}

	return event, nil
}

func (r *AuditRepository) ListByTransaction(ctx context.Context, transactionID string) ([]domain.AuditEvent, error) {
	const query = `
SELECT id, transaction_id, from_status, to_status, actor, reason, created_at
FROM audit_events
WHERE transaction_id = $1
ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		if err := rows.Scan(
			&event.ID,
			&event.TransactionID,
			&event.FromStatus,
			&event.ToStatus,
			&event.Actor,
			&event.Reason,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
