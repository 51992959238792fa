package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/memory"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	feeAccountID        = "platform-fees"
	settlementAccountID = "platform-settlement"
)

type fixture struct {
	store    *memory.Store
	accounts *memory.AccountRepository
	txs      *memory.TransactionRepository
	ledger   *memory.LedgerRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore("USD", feeAccountID, settlementAccountID, "UTC")
	return &fixture{
		store:    store,
		accounts: memory.NewAccountRepository(store),
		txs:      memory.NewTransactionRepository(store),
		ledger:   memory.NewLedgerRepository(store),
	}
}

func (f *fixture) customer(t *testing.T, id string, balance int64) domain.Account {
	t.Helper()
	ctx := context.Background()

	account, err := f.accounts.Create(ctx, domain.Account{
		ID:       id,
		Name:     "Customer " + id,
		Currency: "USD",
		Timezone: "UTC",
	})
	require.NoError(t, err)

	if balance > 0 {
		require.NoError(t, f.accounts.Deposit(ctx, id, decimal.NewFromInt(balance)))
		account, err = f.accounts.Get(ctx, id)
		require.NoError(t, err)
	}
	return account
}

func sendPosting(txID string, sender, receiver *string, amount, fee decimal.Decimal, guard uint64) domain.Posting {
	return domain.Posting{
		TransactionID:       txID,
		FromStatus:          domain.TransactionStatusCreated,
		SenderID:            sender,
		ReceiverID:          receiver,
		FeeAccountID:        feeAccountID,
		SettlementAccountID: settlementAccountID,
		Amount:              amount,
		Fee:                 fee,
		GuardVersion:        guard,
	}
}

func newTx(id string, sender, receiver *string, amount, fee decimal.Decimal) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		Reference:  "TXN" + id,
		Type:       domain.TransactionTypeSendMoney,
		Amount:     amount,
		Fee:        fee,
		Currency:   "USD",
		SenderID:   sender,
		ReceiverID: receiver,
		Status:     domain.TransactionStatusCreated,
	}
}

func ptr(s string) *string { return &s }

// totalBalance sums every account. Deposits and postings only move money
// between accounts inside the engine, so the total must stay zero.
func (f *fixture) totalBalance(t *testing.T, ids ...string) decimal.Decimal {
	t.Helper()
	ctx := context.Background()

	total := decimal.Zero
	for _, id := range append(ids, feeAccountID, settlementAccountID) {
		account, err := f.accounts.Get(ctx, id)
		require.NoError(t, err)
		total = total.Add(account.AvailableBalance)
	}
	return total
}

func TestCommitNewMovesAllLegsAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 500)
	f.customer(t, "bob", 0)

	amount := decimal.NewFromInt(100)
	fee := decimal.NewFromInt(3)
	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), amount, fee)

	committed, err := f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, ptr("alice"), ptr("bob"), amount, fee, 0))
	require.NoError(t, err)
	require.Equal(t, domain.TransactionStatusCompleted, committed.Status)

	alice, _ := f.accounts.Get(ctx, "alice")
	bob, _ := f.accounts.Get(ctx, "bob")
	feeAcct, _ := f.accounts.Get(ctx, feeAccountID)

	require.True(t, alice.AvailableBalance.Equal(decimal.NewFromInt(397)), "alice: %s", alice.AvailableBalance)
	require.True(t, bob.AvailableBalance.Equal(decimal.NewFromInt(100)), "bob: %s", bob.AvailableBalance)
	require.True(t, feeAcct.AvailableBalance.Equal(decimal.NewFromInt(3)), "fee: %s", feeAcct.AvailableBalance)
	require.True(t, f.totalBalance(t, "alice", "bob").IsZero())
}

func TestCommitNewInsufficientBalanceLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 50)
	f.customer(t, "bob", 0)

	amount := decimal.NewFromInt(100)
	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), amount, decimal.NewFromInt(3))

	_, err := f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, ptr("alice"), ptr("bob"), amount, decimal.NewFromInt(3), 0))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = f.txs.Get(ctx, tx.ID)
	require.ErrorIs(t, err, domain.ErrRecordNotFound, "rejected submission must persist no record")

	alice, _ := f.accounts.Get(ctx, "alice")
	require.True(t, alice.AvailableBalance.Equal(decimal.NewFromInt(50)))
}

func TestCommitNewStaleGuardVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.customer(t, "alice", 500)
	f.customer(t, "bob", 0)

	// A deposit after the usage read bumps the version.
	require.NoError(t, f.accounts.Deposit(ctx, "alice", decimal.NewFromInt(10)))

	amount := decimal.NewFromInt(100)
	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), amount, decimal.Zero)

	_, err := f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, ptr("alice"), ptr("bob"), amount, decimal.Zero, alice.Version))
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestParkBumpsVersionAndBlocksStaleCommits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.customer(t, "alice", 5000)
	f.customer(t, "bob", 0)

	// Both submissions observe the same usage snapshot.
	observed := alice.Version

	parkAmount := decimal.NewFromInt(1500)
	parkTx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), parkAmount, decimal.NewFromInt(25))
	parked, err := f.ledger.Park(ctx, parkTx, sendPosting(parkTx.ID, ptr("alice"), ptr("bob"), parkAmount, decimal.NewFromInt(25), observed))
	require.NoError(t, err)
	require.Equal(t, domain.TransactionStatusPendingReview, parked.Status)

	// The park changed the rolling sums, so it must also bump the guard.
	after, err := f.accounts.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, observed+1, after.Version)

	dayStart := time.Now().UTC().Add(-time.Hour)
	usage, err := f.ledger.LimitUsage(ctx, "alice", dayStart, dayStart)
	require.NoError(t, err)
	require.True(t, usage.DaySum.Equal(parkAmount), "day sum: %s", usage.DaySum)

	// A commit still guarded on the pre-park version saw stale sums and
	// must be forced to re-evaluate.
	amount := decimal.NewFromInt(600)
	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), amount, decimal.Zero)
	_, err = f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, ptr("alice"), ptr("bob"), amount, decimal.Zero, observed))
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	// No balances move on a park.
	require.True(t, after.AvailableBalance.Equal(decimal.NewFromInt(5000)))
}

func TestParkStaleGuardConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.customer(t, "alice", 5000)
	f.customer(t, "bob", 0)

	require.NoError(t, f.accounts.Deposit(ctx, "alice", decimal.NewFromInt(10)))

	amount := decimal.NewFromInt(1500)
	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), amount, decimal.Zero)
	_, err := f.ledger.Park(ctx, tx, sendPosting(tx.ID, ptr("alice"), ptr("bob"), amount, decimal.Zero, alice.Version))
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	_, err = f.txs.Get(ctx, tx.ID)
	require.ErrorIs(t, err, domain.ErrRecordNotFound, "conflicted park must persist no record")
}

func TestCashInDebitsSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "bob", 0)

	amount := decimal.NewFromInt(200)
	fee := decimal.NewFromInt(2)
	tx := newTx(uuid.NewString(), nil, ptr("bob"), amount, fee)
	tx.Type = domain.TransactionTypeCashIn

	_, err := f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, nil, ptr("bob"), amount, fee, 0))
	require.NoError(t, err)

	settlement, _ := f.accounts.Get(ctx, settlementAccountID)
	bob, _ := f.accounts.Get(ctx, "bob")

	require.True(t, settlement.AvailableBalance.Equal(decimal.NewFromInt(-202)), "settlement: %s", settlement.AvailableBalance)
	require.True(t, bob.AvailableBalance.Equal(decimal.NewFromInt(200)))
	require.True(t, f.totalBalance(t, "bob").IsZero())
}

func TestConcurrentCommitsConserveMoney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 10000)
	f.customer(t, "bob", 10000)

	errs := make([]error, 50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender, receiver := "alice", "bob"
			if i%2 == 0 {
				sender, receiver = receiver, sender
			}
			amount := decimal.NewFromInt(int64(i%7 + 1))
			fee := decimal.NewFromInt(1)
			tx := newTx(uuid.NewString(), ptr(sender), ptr(receiver), amount, fee)
			_, errs[i] = f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, ptr(sender), ptr(receiver), amount, fee, 0))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "commit %d", i)
	}

	require.True(t, f.totalBalance(t, "alice", "bob").IsZero())
}

func TestCommitPendingOnlyOneApproverWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 5000)
	f.customer(t, "bob", 0)

	amount := decimal.NewFromInt(2000)
	fee := decimal.NewFromInt(25)
	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), amount, fee)

	created, err := f.txs.Create(ctx, tx)
	require.NoError(t, err)
	_, err = f.txs.UpdateStatusIf(ctx, created.ID, domain.TransactionStatusCreated, domain.TransactionStatusPendingReview, nil)
	require.NoError(t, err)

	posting := sendPosting(created.ID, ptr("alice"), ptr("bob"), amount, fee, 0)
	posting.FromStatus = domain.TransactionStatusPendingReview

	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.CommitPending(ctx, posting)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var transitionErr *domain.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
	}
	require.Equal(t, 1, wins, "exactly one approver must win")

	alice, _ := f.accounts.Get(ctx, "alice")
	require.True(t, alice.AvailableBalance.Equal(decimal.NewFromInt(2975)), "legs must apply exactly once: %s", alice.AvailableBalance)
}

func TestRefundRestoresBalancesAndKeepsFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 500)
	f.customer(t, "bob", 0)

	amount := decimal.NewFromInt(100)
	fee := decimal.NewFromInt(3)
	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), amount, fee)
	committed, err := f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, ptr("alice"), ptr("bob"), amount, fee, 0))
	require.NoError(t, err)

	refundTx := newTx(uuid.NewString(), ptr("bob"), ptr("alice"), amount, decimal.Zero)
	refundTx.RefundOfID = &committed.ID

	original, refund, err := f.ledger.Refund(ctx, domain.RefundPosting{
		OriginalID:          committed.ID,
		Refund:              refundTx,
		FeeAccountID:        feeAccountID,
		SettlementAccountID: settlementAccountID,
	})
	require.NoError(t, err)
	require.Equal(t, domain.TransactionStatusRefunded, original.Status)
	require.Equal(t, domain.TransactionStatusCompleted, refund.Status)

	alice, _ := f.accounts.Get(ctx, "alice")
	bob, _ := f.accounts.Get(ctx, "bob")
	feeAcct, _ := f.accounts.Get(ctx, feeAccountID)

	// The amount comes back; the fee stays with the platform.
	require.True(t, alice.AvailableBalance.Equal(decimal.NewFromInt(497)), "alice: %s", alice.AvailableBalance)
	require.True(t, bob.AvailableBalance.IsZero())
	require.True(t, feeAcct.AvailableBalance.Equal(decimal.NewFromInt(3)))
}

func TestRefundIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 500)
	f.customer(t, "bob", 100)

	amount := decimal.NewFromInt(100)
	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), amount, decimal.Zero)
	committed, err := f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, ptr("alice"), ptr("bob"), amount, decimal.Zero, 0))
	require.NoError(t, err)

	refundOnce := func() error {
		refundTx := newTx(uuid.NewString(), ptr("bob"), ptr("alice"), amount, decimal.Zero)
		refundTx.RefundOfID = &committed.ID
		_, _, err := f.ledger.Refund(ctx, domain.RefundPosting{
			OriginalID:          committed.ID,
			Refund:              refundTx,
			FeeAccountID:        feeAccountID,
			SettlementAccountID: settlementAccountID,
		})
		return err
	}

	require.NoError(t, refundOnce())

	err = refundOnce()
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr, "second refund must be rejected")
}

func TestUpdateStatusIfRejectsUnknownEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 500)
	f.customer(t, "bob", 0)

	tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), decimal.NewFromInt(10), decimal.Zero)
	created, err := f.txs.Create(ctx, tx)
	require.NoError(t, err)

	_, err = f.txs.UpdateStatusIf(ctx, created.ID, domain.TransactionStatusCreated, domain.TransactionStatusRefunded, nil)
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestLimitUsageCountsPendingAndSkipsRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 5000)
	f.customer(t, "bob", 5000)

	// A completed send and a pending review both count.
	tx1 := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), decimal.NewFromInt(100), decimal.Zero)
	_, err := f.ledger.CommitNew(ctx, tx1, sendPosting(tx1.ID, ptr("alice"), ptr("bob"), decimal.NewFromInt(100), decimal.Zero, 0))
	require.NoError(t, err)

	tx2 := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), decimal.NewFromInt(50), decimal.Zero)
	created, err := f.txs.Create(ctx, tx2)
	require.NoError(t, err)
	_, err = f.txs.UpdateStatusIf(ctx, created.ID, domain.TransactionStatusCreated, domain.TransactionStatusPendingReview, nil)
	require.NoError(t, err)

	// A refund received by alice must not consume her allowance.
	tx3 := newTx(uuid.NewString(), ptr("bob"), ptr("alice"), decimal.NewFromInt(300), decimal.Zero)
	tx3.RefundOfID = &tx1.ID
	_, err = f.ledger.CommitNew(ctx, tx3, sendPosting(tx3.ID, ptr("bob"), ptr("alice"), decimal.NewFromInt(300), decimal.Zero, 0))
	require.NoError(t, err)

	dayStart := time.Now().UTC().Add(-time.Hour)
	monthStart := time.Now().UTC().Add(-24 * time.Hour)

	usage, err := f.ledger.LimitUsage(ctx, "alice", dayStart, monthStart)
	require.NoError(t, err)
	require.True(t, usage.DaySum.Equal(decimal.NewFromInt(150)), "day sum: %s", usage.DaySum)

	// Bob sent the refund, so it is not counted against him either.
	usage, err = f.ledger.LimitUsage(ctx, "bob", dayStart, monthStart)
	require.NoError(t, err)
	require.True(t, usage.DaySum.IsZero(), "bob day sum: %s", usage.DaySum)
}

func TestDepositMovesFromSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 0)
	require.NoError(t, f.accounts.Deposit(ctx, "alice", decimal.NewFromInt(250)))

	alice, _ := f.accounts.Get(ctx, "alice")
	settlement, _ := f.accounts.Get(ctx, settlementAccountID)
	require.True(t, alice.AvailableBalance.Equal(decimal.NewFromInt(250)))
	require.True(t, settlement.AvailableBalance.Equal(decimal.NewFromInt(-250)))

	err := f.accounts.Deposit(ctx, "ghost", decimal.NewFromInt(10))
	require.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customer(t, "alice", 100000)
	f.customer(t, "bob", 0)

	for i := 0; i < 5; i++ {
		tx := newTx(uuid.NewString(), ptr("alice"), ptr("bob"), decimal.NewFromInt(int64(10+i)), decimal.Zero)
		_, err := f.ledger.CommitNew(ctx, tx, sendPosting(tx.ID, ptr("alice"), ptr("bob"), tx.Amount, decimal.Zero, 0))
		require.NoError(t, err)
	}

	status := domain.TransactionStatusCompleted
	items, total, err := f.txs.List(ctx, domain.TransactionFilter{Status: &status}, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, items, 2)

	// Newest first.
	require.True(t, !items[0].CreatedAt.Before(items[1].CreatedAt))

	failed := domain.TransactionStatusFailed
	items, total, err = f.txs.List(ctx, domain.TransactionFilter{Status: &failed}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
	require.Empty(t, items)
}
