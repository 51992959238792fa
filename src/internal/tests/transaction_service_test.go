package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/models"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/memory"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/notify"
	"github.com/PersonalHub360/gateway-sub002/src/internal/policy"
	"github.com/PersonalHub360/gateway-sub002/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

const (
	feeAccountID        = "platform-fees"
	settlementAccountID = "platform-settlement"
	reviewerID          = "admin-1"
	reviewerSecret      = "ReviewSecret001"
)

// engine wires the full service stack against the in-process ledger store,
// the same composition the server performs at startup.
type engine struct {
	accounts     *memory.AccountRepository
	transactions *services.TransactionService
	approvals    *services.ApprovalService
	accountSvc   *services.AccountService
}

func newEngine(t *testing.T, reviewTTL time.Duration) *engine {
	t.Helper()
	return newEngineRetries(t, reviewTTL, 3)
}

func newEngineRetries(t *testing.T, reviewTTL time.Duration, commitRetries int) *engine {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore("USD", feeAccountID, settlementAccountID, "UTC")
	accountRepo := memory.NewAccountRepository(store)
	txRepo := memory.NewTransactionRepository(store)
	ledgerRepo := memory.NewLedgerRepository(store)
	auditRepo := memory.NewAuditRepository(store)
	actorRepo := memory.NewActorRepository(store)

	provider, err := policy.NewFileProvider("")
	if err != nil {
		t.Fatalf("policy provider: %v", err)
	}

	transitioner := services.NewStatusTransitioner(txRepo, auditRepo, notify.NewLogDispatcher())
	identity := services.NewIdentityService(actorRepo)
	if err := identity.EnsureActor(ctx, reviewerID, "Review Administrator", reviewerSecret, domain.ActorRoleAdministrator); err != nil {
		t.Fatalf("seed reviewer: %v", err)
	}

	return &engine{
		accounts: accountRepo,
		transactions: services.NewTransactionService(
			txRepo, accountRepo, ledgerRepo, auditRepo,
			provider, services.NewLimitEnforcer(ledgerRepo), transitioner,
			"USD", feeAccountID, settlementAccountID, commitRetries,
		),
		approvals: services.NewApprovalService(
			txRepo, accountRepo, ledgerRepo, identity, transitioner,
			feeAccountID, settlementAccountID, reviewTTL,
		),
		accountSvc: services.NewAccountService(accountRepo, "USD", "UTC"),
	}
}

func (e *engine) fundedAccount(t *testing.T, name string, balance int64) string {
	t.Helper()
	ctx := context.Background()

	created, err := e.accountSvc.CreateAccount(ctx, models.CreateAccountRequest{
		Name:     name,
		Currency: "USD",
		Timezone: "UTC",
	})
	if err != nil {
		t.Fatalf("create account %s: %v", name, err)
	}
	id := created.Data.ID

	if balance > 0 {
		if _, err := e.accountSvc.Deposit(ctx, models.DepositRequest{
			AccountID: id,
			Amount:    decimal.NewFromInt(balance),
		}); err != nil {
			t.Fatalf("fund account %s: %v", name, err)
		}
	}
	return id
}

func (e *engine) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	account, err := e.accounts.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return account.AvailableBalance
}

func (e *engine) hold(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	account, err := e.accounts.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return account.HoldAmount
}

func submitSend(e *engine, sender, receiver string, amount int64) (models.TransactionResponse, error) {
	response, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:       "SEND_MONEY",
		Amount:     decimal.NewFromInt(amount),
		Currency:   "USD",
		SenderID:   sender,
		ReceiverID: receiver,
	})
	if err != nil {
		return models.TransactionResponse{}, err
	}
	return *response.Data, nil
}

func TestSubmitSendMoneyAutoApproves(t *testing.T) {
	e := newEngine(t, time.Hour)
	alice := e.fundedAccount(t, "Alice", 500)
	bob := e.fundedAccount(t, "Bob", 0)

	tx, err := submitSend(e, alice, bob, 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if tx.Status != string(domain.TransactionStatusCompleted) {
		t.Fatalf("status = %s, want COMPLETED", tx.Status)
	}
	if !tx.Fee.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("fee = %s, want 3 (2.5%% of 100 plus 0.50 fixed)", tx.Fee)
	}
	if !tx.TotalDebit.Equal(decimal.NewFromInt(103)) {
		t.Fatalf("totalDebit = %s, want 103", tx.TotalDebit)
	}

	if got := e.balance(t, alice); !got.Equal(decimal.NewFromInt(397)) {
		t.Fatalf("sender balance = %s, want 397", got)
	}
	if got := e.balance(t, bob); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("receiver balance = %s, want 100", got)
	}
	if got := e.balance(t, feeAccountID); !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("fee account balance = %s, want 3", got)
	}
}

func TestSubmitCashInWithoutSender(t *testing.T) {
	e := newEngine(t, time.Hour)
	bob := e.fundedAccount(t, "Bob", 0)

	response, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:       "CASH_IN",
		Amount:     decimal.NewFromInt(200),
		Currency:   "USD",
		ReceiverID: bob,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if response.Data.Status != string(domain.TransactionStatusCompleted) {
		t.Fatalf("status = %s, want COMPLETED", response.Data.Status)
	}

	if got := e.balance(t, bob); !got.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("receiver balance = %s, want 200", got)
	}
	// The settlement account carries the external leg.
	if got := e.balance(t, settlementAccountID); !got.IsNegative() {
		t.Fatalf("settlement balance = %s, want negative", got)
	}
}

func TestSubmitAboveThresholdParksForReviewAndApproveCompletes(t *testing.T) {
	e := newEngine(t, time.Hour)
	alice := e.fundedAccount(t, "Alice", 5000)
	bob := e.fundedAccount(t, "Bob", 0)

	tx, err := submitSend(e, alice, bob, 2000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if tx.Status != string(domain.TransactionStatusPendingReview) {
		t.Fatalf("status = %s, want PENDING_REVIEW", tx.Status)
	}

	// No money moves while the review is open; the debit is held instead.
	if got := e.balance(t, alice); !got.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("sender balance = %s, want 5000 untouched", got)
	}
	if got := e.hold(t, alice); !got.Equal(decimal.NewFromInt(2025)) {
		t.Fatalf("sender hold = %s, want 2025 (amount plus capped fee)", got)
	}

	approved, err := e.approvals.ApproveTransaction(context.Background(), models.ApproveTransactionRequest{
		TransactionID:    tx.ID,
		ActorCredentials: models.ActorCredentials{ActorID: reviewerID, ActorSecret: reviewerSecret},
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Data.Status != string(domain.TransactionStatusCompleted) {
		t.Fatalf("status = %s, want COMPLETED", approved.Data.Status)
	}

	if got := e.balance(t, alice); !got.Equal(decimal.NewFromInt(2975)) {
		t.Fatalf("sender balance = %s, want 2975", got)
	}
	if got := e.balance(t, bob); !got.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("receiver balance = %s, want 2000", got)
	}
	if got := e.hold(t, alice); !got.IsZero() {
		t.Fatalf("sender hold = %s, want released", got)
	}
}

func TestRejectReleasesHoldAndMovesNothing(t *testing.T) {
	e := newEngine(t, time.Hour)
	alice := e.fundedAccount(t, "Alice", 5000)
	bob := e.fundedAccount(t, "Bob", 0)

	tx, err := submitSend(e, alice, bob, 2000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	rejected, err := e.approvals.RejectTransaction(context.Background(), models.RejectTransactionRequest{
		TransactionID:    tx.ID,
		Reason:           "suspicious counterparty",
		ActorCredentials: models.ActorCredentials{ActorID: reviewerID, ActorSecret: reviewerSecret},
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Data.Status != string(domain.TransactionStatusFailed) {
		t.Fatalf("status = %s, want FAILED", rejected.Data.Status)
	}
	if rejected.Data.FailureReason == nil || *rejected.Data.FailureReason != "suspicious counterparty" {
		t.Fatalf("failureReason = %v, want the reviewer's reason", rejected.Data.FailureReason)
	}

	if got := e.balance(t, alice); !got.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("sender balance = %s, want untouched", got)
	}
	if got := e.balance(t, bob); !got.IsZero() {
		t.Fatalf("receiver balance = %s, want zero", got)
	}
	if got := e.hold(t, alice); !got.IsZero() {
		t.Fatalf("sender hold = %s, want released", got)
	}
}

func TestApproveRequiresKnownActor(t *testing.T) {
	e := newEngine(t, time.Hour)
	alice := e.fundedAccount(t, "Alice", 5000)
	bob := e.fundedAccount(t, "Bob", 0)

	tx, err := submitSend(e, alice, bob, 2000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = e.approvals.ApproveTransaction(context.Background(), models.ApproveTransactionRequest{
		TransactionID:    tx.ID,
		ActorCredentials: models.ActorCredentials{ActorID: reviewerID, ActorSecret: "wrong-secret"},
	})
	if !errors.Is(err, domain.ErrUnauthorizedActor) {
		t.Fatalf("err = %v, want ErrUnauthorizedActor", err)
	}

	_, err = e.approvals.ApproveTransaction(context.Background(), models.ApproveTransactionRequest{
		TransactionID:    tx.ID,
		ActorCredentials: models.ActorCredentials{ActorID: "nobody", ActorSecret: "whatever"},
	})
	if !errors.Is(err, domain.ErrUnauthorizedActor) {
		t.Fatalf("err = %v, want ErrUnauthorizedActor for unknown actor", err)
	}
}

func TestSubmitBelowMinimumIsRejected(t *testing.T) {
	e := newEngine(t, time.Hour)
	alice := e.fundedAccount(t, "Alice", 500)
	bob := e.fundedAccount(t, "Bob", 0)

	_, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:       "SEND_MONEY",
		Amount:     decimal.RequireFromString("0.50"),
		Currency:   "USD",
		SenderID:   alice,
		ReceiverID: bob,
	})

	var limitErr *domain.LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want LimitExceededError", err)
	}
	if limitErr.Scope != domain.LimitScopePerTransaction {
		t.Fatalf("scope = %s, want per-transaction", limitErr.Scope)
	}

	if got := e.balance(t, alice); !got.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("sender balance = %s, want untouched", got)
	}
}

func TestSubmitInsufficientBalanceLeavesNoRecord(t *testing.T) {
	e := newEngine(t, time.Hour)
	alice := e.fundedAccount(t, "Alice", 50)
	bob := e.fundedAccount(t, "Bob", 0)

	_, err := submitSend(e, alice, bob, 100)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	list, err := e.transactions.ListTransactions(context.Background(), domain.TransactionFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Data.TotalItems != 0 {
		t.Fatalf("totalItems = %d, want 0 after a rejected submission", list.Data.TotalItems)
	}
}

func TestSubmitUnknownCurrencyIsRejected(t *testing.T) {
	e := newEngine(t, time.Hour)
	alice := e.fundedAccount(t, "Alice", 500)
	bob := e.fundedAccount(t, "Bob", 0)

	_, err := e.transactions.SubmitTransaction(context.Background(), models.SubmitTransactionRequest{
		Type:       "SEND_MONEY",
		Amount:     decimal.NewFromInt(10),
		Currency:   "EUR",
		SenderID:   alice,
		ReceiverID: bob,
	})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError for unsupported currency", err)
	}
}

func TestConcurrentSubmissionsRespectDailyLimit(t *testing.T) {
	// 25 concurrent sends of 900 against a 20000 daily limit: exactly 22
	// fit (19800); the rest must fail the daily check, never silently
	// exceed it. The generous retry budget lets every conflicted
	// submission re-evaluate instead of surfacing the conflict.
	e := newEngineRetries(t, time.Hour, 64)
	alice := e.fundedAccount(t, "Alice", 30000)
	bob := e.fundedAccount(t, "Bob", 0)

	const submissions = 25
	results := make([]error, submissions)
	var wg sync.WaitGroup
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = submitSend(e, alice, bob, 900)
		}(i)
	}
	wg.Wait()

	completed := 0
	for i, err := range results {
		if err == nil {
			completed++
			continue
		}
		var limitErr *domain.LimitExceededError
		if !errors.As(err, &limitErr) {
			t.Fatalf("submission %d: err = %v, want LimitExceededError", i, err)
		}
		if limitErr.Scope != domain.LimitScopeDaily {
			t.Fatalf("submission %d: scope = %s, want daily", i, limitErr.Scope)
		}
	}
	if completed != 22 {
		t.Fatalf("completed = %d, want exactly 22 within the daily limit", completed)
	}

	// 22 * (900 + 23 fee) debited.
	if got := e.balance(t, alice); !got.Equal(decimal.NewFromInt(9694)) {
		t.Fatalf("sender balance = %s, want 9694", got)
	}
	if got := e.balance(t, bob); !got.Equal(decimal.NewFromInt(19800)) {
		t.Fatalf("receiver balance = %s, want 19800", got)
	}
}

func TestSweepExpiresStaleReviews(t *testing.T) {
	e := newEngine(t, 0)
	alice := e.fundedAccount(t, "Alice", 5000)
	bob := e.fundedAccount(t, "Bob", 0)

	tx, err := submitSend(e, alice, bob, 2000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if tx.Status != string(domain.TransactionStatusPendingReview) {
		t.Fatalf("status = %s, want PENDING_REVIEW", tx.Status)
	}

	expired, err := e.approvals.SweepExpiredReviews(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	status := domain.TransactionStatusFailed
	list, err := e.transactions.ListTransactions(context.Background(), domain.TransactionFilter{Status: &status}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Data.TotalItems != 1 {
		t.Fatalf("failed transactions = %d, want 1", list.Data.TotalItems)
	}
	if got := e.hold(t, alice); !got.IsZero() {
		t.Fatalf("sender hold = %s, want released after expiry", got)
	}

	// A later sweep finds nothing left to expire.
	expired, err = e.approvals.SweepExpiredReviews(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expired = %d, want 0", expired)
	}
}
