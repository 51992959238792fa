package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/models"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/memory"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/notify"
	"github.com/PersonalHub360/gateway-sub002/src/internal/policy"
	"github.com/PersonalHub360/gateway-sub002/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

// conflictLedger forwards to the real store but makes every pending commit
// lose its version race.
type conflictLedger struct {
	repo_interfaces.LedgerRepository
}

func (c conflictLedger) CommitPending(ctx context.Context, posting domain.Posting) (domain.Transaction, error) {
	return domain.Transaction{}, domain.ErrConcurrencyConflict
}

func TestApproveCommitConflictKeepsTransactionPending(t *testing.T) {
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

	transactions := services.NewTransactionService(
		txRepo, accountRepo, ledgerRepo, auditRepo,
		provider, services.NewLimitEnforcer(ledgerRepo), transitioner,
		"USD", feeAccountID, settlementAccountID, 3,
	)
	approvals := services.NewApprovalService(
		txRepo, accountRepo, conflictLedger{ledgerRepo}, identity, transitioner,
		feeAccountID, settlementAccountID, time.Hour,
	)

	alice, err := accountRepo.Create(ctx, domain.Account{Name: "Alice", Currency: "USD", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("create sender: %v", err)
	}
	bob, err := accountRepo.Create(ctx, domain.Account{Name: "Bob", Currency: "USD", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("create receiver: %v", err)
	}
	if err := accountRepo.Deposit(ctx, alice.ID, decimal.NewFromInt(5000)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}

	response, err := transactions.SubmitTransaction(ctx, models.SubmitTransactionRequest{
		Type:       "SEND_MONEY",
		Amount:     decimal.NewFromInt(2000),
		Currency:   "USD",
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = approvals.ApproveTransaction(ctx, models.ApproveTransactionRequest{
		TransactionID:    response.Data.ID,
		ActorCredentials: models.ActorCredentials{ActorID: reviewerID, ActorSecret: reviewerSecret},
	})
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("err = %v, want ErrConcurrencyConflict surfaced for retry", err)
	}

	// A transient conflict must not burn the transaction.
	tx, err := txRepo.Get(ctx, response.Data.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if tx.Status != domain.TransactionStatusPendingReview {
		t.Fatalf("status = %s, want still PENDING_REVIEW", tx.Status)
	}

	sender, err := accountRepo.Get(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get sender: %v", err)
	}
	if !sender.HoldAmount.Equal(decimal.NewFromInt(2025)) {
		t.Fatalf("hold = %s, want 2025 kept in place", sender.HoldAmount)
	}
}
