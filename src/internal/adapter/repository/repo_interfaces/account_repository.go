package repo_interfaces

import (
	"context"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)

	// Deposit credits a customer account from the settlement account. Used
	// by the ops surface to seed balances; it bumps the account version
	// like any other committed posting.
	Deposit(ctx context.Context, id string, amount decimal.Decimal) error

	// AdjustHold moves the pending-debit hold figure by delta. Holds are
	// informational: balance checks always run against available balance.
	AdjustHold(ctx context.Context, id string, delta decimal.Decimal) error
}
