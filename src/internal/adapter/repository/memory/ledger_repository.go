package memory

import (
	"context"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/shopspring/decimal"
)

var _ repo_interfaces.LedgerRepository = (*LedgerRepository)(nil)

type LedgerRepository struct {
	store *Store
}

func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// LimitUsage reads the rolling sums and the account version under the
// account lock, so the pair is a consistent snapshot: any posting that
// lands afterwards bumps the version and invalidates a commit guarded by
// the value returned here.
func (r *LedgerRepository) LimitUsage(ctx context.Context, accountID string, dayStart, monthStart time.Time) (domain.LimitUsage, error) {
	_ = ctx

	s := r.store
	slot, ok := s.slot(accountID)
	if !ok {
		return domain.LimitUsage{}, domain.ErrRecordNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	version := slot.acct.Version

	s.mu.RLock()
	defer s.mu.RUnlock()

	daySum := decimal.Zero
	monthSum := decimal.Zero
	for _, tx := range s.txs {
		if tx.CountedPartyID() != accountID {
			continue
		}
		if tx.Status != domain.TransactionStatusCompleted && tx.Status != domain.TransactionStatusPendingReview {
			continue
		}
		// Compensating transactions give money back and do not consume
		// the party's sending allowance.
		if tx.RefundOfID != nil {
			continue
		}
		if !tx.CreatedAt.Before(monthStart) {
			monthSum = monthSum.Add(tx.Amount)
		}
		if !tx.CreatedAt.Before(dayStart) {
			daySum = daySum.Add(tx.Amount)
		}
	}

	return domain.LimitUsage{
		DaySum:         daySum,
		MonthSum:       monthSum,
		AccountVersion: version,
	}, nil
}

func (r *LedgerRepository) CommitNew(ctx context.Context, tx domain.Transaction, posting domain.Posting) (domain.Transaction, error) {
	_ = ctx

	s := r.store

	debitID := valueOr(posting.SenderID, posting.SettlementAccountID)
	creditID := valueOr(posting.ReceiverID, posting.SettlementAccountID)

	slots, unlock, err := s.lockAccounts(debitID, creditID, posting.FeeAccountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.ID]; exists {
		return domain.Transaction{}, domain.ErrConcurrencyConflict
	}

	guarded := slots[valueOr(posting.SenderID, creditID)]
	if posting.GuardVersion != 0 && guarded.acct.Version != posting.GuardVersion {
		return domain.Transaction{}, domain.ErrConcurrencyConflict
	}

	if err := applyLegs(slots, debitID, creditID, posting.FeeAccountID, posting.Amount, posting.Fee); err != nil {
		return domain.Transaction{}, err
	}

	now := time.Now().UTC()
	tx.Status = domain.TransactionStatusCompleted
	tx.CreatedAt = now
	tx.UpdatedAt = now
	stored := tx
	s.txs[tx.ID] = &stored
	s.order = append(s.order, tx.ID)

	return tx, nil
}

// Park stores the transaction as PENDING_REVIEW and bumps the counted
// party's version under the same guard as CommitNew. The parked amount is
// now visible to LimitUsage, and the bump invalidates any commit guarded
// by a version read before the park.
func (r *LedgerRepository) Park(ctx context.Context, tx domain.Transaction, posting domain.Posting) (domain.Transaction, error) {
	_ = ctx

	s := r.store

	partyID := valueOr(posting.SenderID, valueOr(posting.ReceiverID, posting.SettlementAccountID))

	slots, unlock, err := s.lockAccounts(partyID)
	if err != nil {
		return domain.Transaction{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.ID]; exists {
		return domain.Transaction{}, domain.ErrConcurrencyConflict
	}

	party := slots[partyID]
	if posting.GuardVersion != 0 && party.acct.Version != posting.GuardVersion {
		return domain.Transaction{}, domain.ErrConcurrencyConflict
	}

	now := time.Now().UTC()
	party.acct.Version++
	party.acct.UpdatedAt = now

	tx.Status = domain.TransactionStatusPendingReview
	tx.CreatedAt = now
	tx.UpdatedAt = now
	stored := tx
	s.txs[tx.ID] = &stored
	s.order = append(s.order, tx.ID)

	return tx, nil
}

func (r *LedgerRepository) CommitPending(ctx context.Context, posting domain.Posting) (domain.Transaction, error) {
	_ = ctx

	s := r.store

	debitID := valueOr(posting.SenderID, posting.SettlementAccountID)
	creditID := valueOr(posting.ReceiverID, posting.SettlementAccountID)

	slots, unlock, err := s.lockAccounts(debitID, creditID, posting.FeeAccountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[posting.TransactionID]
	if !ok {
		return domain.Transaction{}, domain.ErrRecordNotFound
	}
	if tx.Status != posting.FromStatus {
		return domain.Transaction{}, &domain.InvalidTransitionError{From: tx.Status, To: domain.TransactionStatusCompleted}
	}

	if posting.GuardVersion != 0 {
		guarded := slots[valueOr(posting.SenderID, creditID)]
		if guarded.acct.Version != posting.GuardVersion {
			return domain.Transaction{}, domain.ErrConcurrencyConflict
		}
	}

	if err := applyLegs(slots, debitID, creditID, posting.FeeAccountID, posting.Amount, posting.Fee); err != nil {
		return domain.Transaction{}, err
	}

	tx.Status = domain.TransactionStatusCompleted
	tx.UpdatedAt = time.Now().UTC()

	return *tx, nil
}

func (r *LedgerRepository) Refund(ctx context.Context, posting domain.RefundPosting) (domain.Transaction, domain.Transaction, error) {
	_ = ctx

	s := r.store

	s.mu.RLock()
	originalPtr, ok := s.txs[posting.OriginalID]
	if !ok {
		s.mu.RUnlock()
		return domain.Transaction{}, domain.Transaction{}, domain.ErrRecordNotFound
	}
	snapshot := *originalPtr
	s.mu.RUnlock()

	// The compensating legs run against the original participants: debit
	// whoever was credited, credit whoever was debited. The fee stays with
	// the platform.
	debitID := valueOr(snapshot.ReceiverID, posting.SettlementAccountID)
	creditID := valueOr(snapshot.SenderID, posting.SettlementAccountID)

	slots, unlock, err := s.lockAccounts(debitID, creditID)
	if err != nil {
		return domain.Transaction{}, domain.Transaction{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.txs[posting.OriginalID]
	if !ok {
		return domain.Transaction{}, domain.Transaction{}, domain.ErrRecordNotFound
	}
	if original.Status != domain.TransactionStatusCompleted {
		return domain.Transaction{}, domain.Transaction{}, &domain.InvalidTransitionError{From: original.Status, To: domain.TransactionStatusRefunded}
	}

	debit := slots[debitID]
	if !debit.acct.System() && debit.acct.AvailableBalance.LessThan(original.Amount) {
		return domain.Transaction{}, domain.Transaction{}, domain.ErrInsufficientBalance
	}

	refund := posting.Refund
	if _, exists := s.txs[refund.ID]; exists {
		return domain.Transaction{}, domain.Transaction{}, domain.ErrConcurrencyConflict
	}

	now := time.Now().UTC()

	debit.acct.AvailableBalance = debit.acct.AvailableBalance.Sub(original.Amount)
	debit.acct.Version++
	debit.acct.UpdatedAt = now

	credit := slots[creditID]
	credit.acct.AvailableBalance = credit.acct.AvailableBalance.Add(original.Amount)
	credit.acct.Version++
	credit.acct.UpdatedAt = now

	original.Status = domain.TransactionStatusRefunded
	original.UpdatedAt = now

	refund.Status = domain.TransactionStatusCompleted
	refund.CreatedAt = now
	refund.UpdatedAt = now
	stored := refund
	s.txs[refund.ID] = &stored
	s.order = append(s.order, refund.ID)

	return *original, refund, nil
}

// applyLegs moves the money. Caller holds the slot locks and the store
// mutex; balance order is debit, credit, fee so a failed precondition
// leaves nothing applied.
func applyLegs(slots map[string]*accountSlot, debitID, creditID, feeID string, amount, fee decimal.Decimal) error {
	debit := slots[debitID]
	total := amount.Add(fee)
	if !debit.acct.System() && debit.acct.AvailableBalance.LessThan(total) {
		return domain.ErrInsufficientBalance
	}

	now := time.Now().UTC()

	debit.acct.AvailableBalance = debit.acct.AvailableBalance.Sub(total)
	debit.acct.Version++
	debit.acct.UpdatedAt = now

	credit := slots[creditID]
	credit.acct.AvailableBalance = credit.acct.AvailableBalance.Add(amount)
	credit.acct.Version++
	credit.acct.UpdatedAt = now

	if fee.IsPositive() {
		feeSlot := slots[feeID]
		feeSlot.acct.AvailableBalance = feeSlot.acct.AvailableBalance.Add(fee)
		feeSlot.acct.Version++
		feeSlot.acct.UpdatedAt = now
	}

	return nil
}

func valueOr(id *string, fallback string) string {
	if id != nil {
		return *id
	}
	return fallback
}
