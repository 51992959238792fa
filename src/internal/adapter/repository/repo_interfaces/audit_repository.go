package repo_interfaces

import (
	"context"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
)

// AuditRepository is append-only. There is deliberately no update or
// delete method.
type AuditRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]domain.AuditEvent, error)
}
