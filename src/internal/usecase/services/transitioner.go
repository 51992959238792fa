package services

import (
	"context"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"github.com/PersonalHub360/gateway-sub002/src/internal/notify"
)

// StatusTransitioner is the only code path that moves a transaction's
// status outside of a ledger commit. Every accepted transition appends
// exactly one audit event and dispatches one state-change notification.
type StatusTransitioner struct {
	txRepo     repo_interfaces.TransactionRepository
	auditRepo  repo_interfaces.AuditRepository
	dispatcher notify.Dispatcher
}

func NewStatusTransitioner(
	txRepo repo_interfaces.TransactionRepository,
	auditRepo repo_interfaces.AuditRepository,
	dispatcher notify.Dispatcher,
) *StatusTransitioner {
	return &StatusTransitioner{
		txRepo:     txRepo,
		auditRepo:  auditRepo,
		dispatcher: dispatcher,
	}
}

// Transition compare-and-sets the status and records the audit trail. A
// lost race surfaces as *domain.InvalidTransitionError and leaves no event.
func (t *StatusTransitioner) Transition(
	ctx context.Context,
	tx domain.Transaction,
	to domain.TransactionStatus,
	actor string,
	reason *string,
) (domain.Transaction, error) {
	if !domain.CanTransition(tx.Status, to) {
		return domain.Transaction{}, &domain.InvalidTransitionError{From: tx.Status, To: to}
	}

	updated, err := t.txRepo.UpdateStatusIf(ctx, tx.ID, tx.Status, to, reason)
	if err != nil {
		return domain.Transaction{}, err
	}

	t.Record(ctx, updated, tx.Status, to, actor, reason)
	return updated, nil
}

// Record appends the audit event and notifies for a transition the ledger
// store has already applied atomically (commit, park and refund paths).
func (t *StatusTransitioner) Record(
	ctx context.Context,
	tx domain.Transaction,
	from, to domain.TransactionStatus,
	actor string,
	reason *string,
) {
	if _, err := t.auditRepo.Append(ctx, domain.AuditEvent{
		TransactionID: tx.ID,
		FromStatus:    from,
		ToStatus:      to,
		Actor:         actor,
		Reason:        reason,
	}); err != nil {
		logger.Error("status transitioner audit append failed", err, logger.Fields{
			"transactionId": tx.ID,
			"fromStatus":    from,
			"toStatus":      to,
		})
	}

	t.dispatcher.TransactionStateChanged(ctx, notify.StateChange{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		OldStatus:     from,
		NewStatus:     to,
	})
}
