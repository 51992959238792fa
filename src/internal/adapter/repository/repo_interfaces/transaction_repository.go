package repo_interfaces

import (
	"context"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	Get(ctx context.Context, id string) (domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter, page, pageSize int) ([]domain.Transaction, int64, error)

	// UpdateStatusIf flips the status only when the current value matches
	// from; a miss returns *domain.InvalidTransitionError. This is the
	// compare-and-set every non-ledger transition goes through.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.TransactionStatus, failureReason *string) (domain.Transaction, error)

	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error)
}
