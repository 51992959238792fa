package repo_interfaces

import (
	"context"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
)

// LedgerRepository is the only path through which balances move. Every
// method is atomic: either all legs of a posting land or none do.
type LedgerRepository interface {
	// LimitUsage returns the rolling sums of COMPLETED and PENDING_REVIEW
	// transaction amounts charged to the account since dayStart and
	// monthStart, together with the account version current at the read.
	LimitUsage(ctx context.Context, accountID string, dayStart, monthStart time.Time) (domain.LimitUsage, error)

	// CommitNew inserts the transaction as COMPLETED and applies the legs
	// in one unit. Used on the auto-approval path, so a rejected or
	// conflicted submission leaves no record behind. Fails with
	// domain.ErrInsufficientBalance or domain.ErrConcurrencyConflict
	// (stale GuardVersion).
	CommitNew(ctx context.Context, tx domain.Transaction, posting domain.Posting) (domain.Transaction, error)

	// Park inserts the transaction as PENDING_REVIEW under the same
	// GuardVersion check as CommitNew and bumps the counted party's account
	// version. Parked amounts enter the rolling sums, so the bump forces
	// concurrent submissions that evaluated before the park to re-read
	// their limits. No balances move. Fails with
	// domain.ErrConcurrencyConflict on a stale GuardVersion.
	Park(ctx context.Context, tx domain.Transaction, posting domain.Posting) (domain.Transaction, error)

	// CommitPending flips an existing transaction posting.FromStatus ->
	// COMPLETED and applies the legs in one unit (approve path). A lost
	// status race fails with *domain.InvalidTransitionError.
	CommitPending(ctx context.Context, posting domain.Posting) (domain.Transaction, error)

	// Refund commits the compensating transaction and flips the original to
	// REFUNDED in the same unit. A second refund of the same original fails
	// with *domain.InvalidTransitionError.
	Refund(ctx context.Context, posting domain.RefundPosting) (original domain.Transaction, refund domain.Transaction, err error)
}
