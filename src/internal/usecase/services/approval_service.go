package services

import (
	"context"
	"errors"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/models"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/commons"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"github.com/PersonalHub360/gateway-sub002/src/internal/usecase/service_interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Verify that ApprovalService implements the service_interfaces.ApprovalService interface
var _ service_interfaces.ApprovalService = (*ApprovalService)(nil)

const reviewTimeoutReason = "review-timeout"

type ApprovalService struct {
	txRepo              repo_interfaces.TransactionRepository
	accountRepo         repo_interfaces.AccountRepository
	ledgerRepo          repo_interfaces.LedgerRepository
	identity            *IdentityService
	transitioner        *StatusTransitioner
	feeAccountID        string
	settlementAccountID string
	reviewTTL           time.Duration
}

func NewApprovalService(
	txRepo repo_interfaces.TransactionRepository,
	accountRepo repo_interfaces.AccountRepository,
	ledgerRepo repo_interfaces.LedgerRepository,
	identity *IdentityService,
	transitioner *StatusTransitioner,
	feeAccountID string,
	settlementAccountID string,
	reviewTTL time.Duration,
) *ApprovalService {
	return &ApprovalService{
		txRepo:              txRepo,
		accountRepo:         accountRepo,
		ledgerRepo:          ledgerRepo,
		identity:            identity,
		transitioner:        transitioner,
		feeAccountID:        feeAccountID,
		settlementAccountID: settlementAccountID,
		reviewTTL:           reviewTTL,
	}
}

func (s *ApprovalService) ApproveTransaction(ctx context.Context, req models.ApproveTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("approval service approve request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	actor, err := s.identity.Resolve(ctx, req.ActorID, req.ActorSecret)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("unauthorized actor"), err
	}

	tx, err := s.txRepo.Get(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("transaction not found"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to approve transaction", "Unable to approve transaction right now"), err
	}
	if tx.Status != domain.TransactionStatusPendingReview {
		err := &domain.InvalidTransitionError{From: tx.Status, To: domain.TransactionStatusCompleted}
		return commons.ErrorResponse[models.TransactionResponse]("invalid state transition", err.Error()), err
	}

	posting := domain.Posting{
		TransactionID:       tx.ID,
		FromStatus:          domain.TransactionStatusPendingReview,
		SenderID:            tx.SenderID,
		ReceiverID:          tx.ReceiverID,
		FeeAccountID:        s.feeAccountID,
		SettlementAccountID: s.settlementAccountID,
		Amount:              tx.Amount,
		Fee:                 tx.Fee,
	}

	committed, err := s.ledgerRepo.CommitPending(ctx, posting)
	if err == nil {
		s.releaseHold(ctx, committed)
		s.transitioner.Record(ctx, committed, domain.TransactionStatusPendingReview, domain.TransactionStatusCompleted, actor.ID, nil)
		logger.Info("approval service transaction approved", logger.Fields{
			"transactionId": committed.ID,
			"actorId":       actor.ID,
		})
		return commons.SuccessResponse("transaction approved", models.MapTransaction(committed)), nil
	}

	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return commons.ErrorResponse[models.TransactionResponse]("invalid state transition", transitionErr.Error()), err
	}
	if errors.Is(err, domain.ErrRecordNotFound) {
		return commons.ErrorResponse[models.TransactionResponse]("transaction not found"), err
	}
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		// Transient; the transaction stays PENDING_REVIEW and the caller
		// retries the approval.
		return commons.ErrorResponse[models.TransactionResponse]("concurrency conflict", "Please retry the approval"), err
	}

	// The commit failed for a ledger reason discovered now, typically
	// insufficient funds. The transaction fails with the reason recorded.
	reason := err.Error()
	failed, failErr := s.transitioner.Transition(ctx, tx, domain.TransactionStatusFailed, actor.ID, &reason)
	if failErr != nil {
		logger.Error("approval service fail transition lost", failErr, logger.Fields{
			"transactionId": tx.ID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("invalid state transition", failErr.Error()), failErr
	}
	s.releaseHold(ctx, failed)

	logger.Error("approval service commit failed", err, logger.Fields{
		"transactionId": tx.ID,
		"actorId":       actor.ID,
	})
	if errors.Is(err, domain.ErrInsufficientBalance) {
		return commons.ErrorResponse[models.TransactionResponse]("insufficient balance", err.Error()), err
	}
	return commons.ErrorResponse[models.TransactionResponse]("transaction failed", "Unable to complete the ledger posting"), err
}

func (s *ApprovalService) RejectTransaction(ctx context.Context, req models.RejectTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("approval service reject request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	actor, err := s.identity.Resolve(ctx, req.ActorID, req.ActorSecret)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("unauthorized actor"), err
	}

	tx, err := s.txRepo.Get(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("transaction not found"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to reject transaction", "Unable to reject transaction right now"), err
	}
	if tx.Status != domain.TransactionStatusPendingReview {
		err := &domain.InvalidTransitionError{From: tx.Status, To: domain.TransactionStatusFailed}
		return commons.ErrorResponse[models.TransactionResponse]("invalid state transition", err.Error()), err
	}

	reason := req.Reason
	rejected, err := s.transitioner.Transition(ctx, tx, domain.TransactionStatusFailed, actor.ID, &reason)
	if err != nil {
		var transitionErr *domain.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			return commons.ErrorResponse[models.TransactionResponse]("invalid state transition", transitionErr.Error()), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to reject transaction", "Unable to reject transaction right now"), err
	}
	s.releaseHold(ctx, rejected)

	logger.Info("approval service transaction rejected", logger.Fields{
		"transactionId": rejected.ID,
		"actorId":       actor.ID,
		"reason":        req.Reason,
	})
	return commons.SuccessResponse("transaction rejected", models.MapTransaction(rejected)), nil
}

func (s *ApprovalService) RefundTransaction(ctx context.Context, req models.RefundTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("approval service refund request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	actor, err := s.identity.Resolve(ctx, req.ActorID, req.ActorSecret)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("unauthorized actor"), err
	}

	original, err := s.txRepo.Get(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("transaction not found"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to refund transaction", "Unable to refund transaction right now"), err
	}
	if original.RefundOfID != nil {
		// Refunding a compensating transaction would re-apply the original
		// payment and let refunds chain.
		err := &domain.ValidationError{Detail: "a compensating transaction cannot be refunded"}
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	description := "Refund of " + original.Reference
	refundTx := domain.Transaction{
		ID:            uuid.NewString(),
		Reference:     generateReference("RFD"),
		Type:          original.Type,
		Amount:        original.Amount,
		Fee:           decimal.Zero,
		Currency:      original.Currency,
		SenderID:      original.ReceiverID,
		ReceiverID:    original.SenderID,
		Status:        domain.TransactionStatusCreated,
		Description:   &description,
		RefundOfID:    &original.ID,
		PolicyVersion: original.PolicyVersion,
	}

	posting := domain.RefundPosting{
		OriginalID:          original.ID,
		Refund:              refundTx,
		FeeAccountID:        s.feeAccountID,
		SettlementAccountID: s.settlementAccountID,
	}

	refunded, refund, err := s.ledgerRepo.Refund(ctx, posting)
	if err != nil {
		var transitionErr *domain.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			return commons.ErrorResponse[models.TransactionResponse]("invalid state transition", transitionErr.Error()), err
		}
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return commons.ErrorResponse[models.TransactionResponse]("insufficient balance", err.Error()), err
		}
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("transaction not found"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to refund transaction", "Unable to refund transaction right now"), err
	}

	refundReason := "refund issued"
	s.transitioner.Record(ctx, refunded, domain.TransactionStatusCompleted, domain.TransactionStatusRefunded, actor.ID, &refundReason)
	s.transitioner.Record(ctx, refund, domain.TransactionStatusCreated, domain.TransactionStatusCompleted, actor.ID, nil)

	logger.Info("approval service refund issued", logger.Fields{
		"originalId": refunded.ID,
		"refundId":   refund.ID,
		"actorId":    actor.ID,
	})
	return commons.SuccessResponse("refund issued", models.MapTransaction(refund)), nil
}

// SweepExpiredReviews fails PENDING_REVIEW transactions older than the
// review TTL. It is the safety net that keeps the review queue bounded.
func (s *ApprovalService) SweepExpiredReviews(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.reviewTTL)
	pending, err := s.txRepo.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	reason := reviewTimeoutReason
	for _, tx := range pending {
		failed, err := s.transitioner.Transition(ctx, tx, domain.TransactionStatusFailed, domain.SystemActor, &reason)
		if err != nil {
			// An administrator decision won the race; nothing to do.
			logger.Info("approval service sweep skipped transaction", logger.Fields{
				"transactionId": tx.ID,
			})
			continue
		}
		s.releaseHold(ctx, failed)
		expired++
		logger.Info("approval service review expired", logger.Fields{
			"transactionId": failed.ID,
			"reference":     failed.Reference,
			"reason":        reason,
		})
	}

	return expired, nil
}

// RunSweeper blocks, expiring stale reviews every interval until the
// context is cancelled.
func (s *ApprovalService) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepExpiredReviews(ctx); err != nil {
				logger.Error("approval service sweep failed", err, nil)
			}
		}
	}
}

func (s *ApprovalService) releaseHold(ctx context.Context, tx domain.Transaction) {
	party := tx.CountedPartyID()
	if party == "" {
		return
	}
	if err := s.accountRepo.AdjustHold(ctx, party, tx.Amount.Add(tx.Fee).Neg()); err != nil {
		logger.Error("approval service release hold failed", err, logger.Fields{
			"transactionId": tx.ID,
			"accountId":     party,
		})
	}
}
