package memory

import (
	"context"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/google/uuid"
)

var _ repo_interfaces.AuditRepository = (*AuditRepository)(nil)

type AuditRepository struct {
	store *Store
}

func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

func (r *AuditRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	_ = ctx

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = time.Now().UTC()

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, event)

	return event, nil
}

func (r *AuditRepository) ListByTransaction(ctx context.Context, transactionID string) ([]domain.AuditEvent, error) {
	_ = ctx

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AuditEvent
	for _, event := range s.audit {
		if event.TransactionID == transactionID {
			out = append(out, event)
		}
	}
	return out, nil
}
