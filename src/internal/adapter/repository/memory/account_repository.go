package memory

import (
	"context"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ repo_interfaces.AccountRepository = (*AccountRepository)(nil)

type AccountRepository struct {
	store *Store
}

func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	_ = ctx

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Kind == "" {
		account.Kind = domain.AccountKindCustomer
	}
	account.HoldAmount = decimal.Zero
	// Version starts at 1 so a zero GuardVersion always means "no guard".
	account.Version = 1
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return domain.Account{}, domain.ErrConcurrencyConflict
	}
	s.accounts[account.ID] = &accountSlot{acct: account}

	return account, nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (domain.Account, error) {
	_ = ctx

	slot, ok := r.store.slot(id)
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.acct, nil
}

// Deposit moves funds from the settlement account into a customer account.
// The settlement side may go negative: it mirrors money arriving from
// outside the engine.
func (r *AccountRepository) Deposit(ctx context.Context, id string, amount decimal.Decimal) error {
	_ = ctx

	if !amount.IsPositive() {
		return &domain.ValidationError{Detail: "deposit amount must be positive"}
	}

	s := r.store
	slots, unlock, err := s.lockAccounts(id, s.settlementID)
	if err != nil {
		return err
	}
	defer unlock()

	target := slots[id]
	settlement := slots[s.settlementID]
	now := time.Now().UTC()

	settlement.acct.AvailableBalance = settlement.acct.AvailableBalance.Sub(amount)
	settlement.acct.Version++
	settlement.acct.UpdatedAt = now

	target.acct.AvailableBalance = target.acct.AvailableBalance.Add(amount)
	target.acct.Version++
	target.acct.UpdatedAt = now

	return nil
}

func (r *AccountRepository) AdjustHold(ctx context.Context, id string, delta decimal.Decimal) error {
	_ = ctx

	slot, ok := r.store.slot(id)
	if !ok {
		return domain.ErrRecordNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	hold := slot.acct.HoldAmount.Add(delta)
	if hold.IsNegative() {
		hold = decimal.Zero
	}
	slot.acct.HoldAmount = hold
	slot.acct.UpdatedAt = time.Now().UTC()

	return nil
}
