package services

import (
	"context"
	"errors"
	"strings"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/models"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/commons"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"github.com/PersonalHub360/gateway-sub002/src/internal/policy"
	"github.com/PersonalHub360/gateway-sub002/src/internal/usecase/service_interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Verify that TransactionService implements the service_interfaces.TransactionService interface
var _ service_interfaces.TransactionService = (*TransactionService)(nil)

type TransactionService struct {
	txRepo              repo_interfaces.TransactionRepository
	accountRepo         repo_interfaces.AccountRepository
	ledgerRepo          repo_interfaces.LedgerRepository
	auditRepo           repo_interfaces.AuditRepository
	policies            policy.Provider
	limits              *LimitEnforcer
	transitioner        *StatusTransitioner
	currency            string
	feeAccountID        string
	settlementAccountID string
	commitRetries       int
}

func NewTransactionService(
	txRepo repo_interfaces.TransactionRepository,
	accountRepo repo_interfaces.AccountRepository,
	ledgerRepo repo_interfaces.LedgerRepository,
	auditRepo repo_interfaces.AuditRepository,
	policies policy.Provider,
	limits *LimitEnforcer,
	transitioner *StatusTransitioner,
	currency string,
	feeAccountID string,
	settlementAccountID string,
	commitRetries int,
) *TransactionService {
	return &TransactionService{
		txRepo:              txRepo,
		accountRepo:         accountRepo,
		ledgerRepo:          ledgerRepo,
		auditRepo:           auditRepo,
		policies:            policies,
		limits:              limits,
		transitioner:        transitioner,
		currency:            strings.ToUpper(strings.TrimSpace(currency)),
		feeAccountID:        feeAccountID,
		settlementAccountID: settlementAccountID,
		commitRetries:       commitRetries,
	}
}

func (s *TransactionService) SubmitTransaction(ctx context.Context, req models.SubmitTransactionRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("transaction service submit request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency != s.currency {
		err := &domain.ValidationError{Detail: "currency is not supported by this engine"}
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()), err
	}

	snap, err := s.policies.Snapshot()
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("policy unavailable", "No active policy for this request"), err
	}
	rule, err := snap.FeeRuleFor(req.NormalizedType())
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("policy unavailable", "No fee rule for this transaction type"), err
	}

	amount := req.Amount.Round(2)
	fee := ComputeFee(amount, rule)

	senderID := optionalID(req.SenderID)
	receiverID := optionalID(req.ReceiverID)

	sender, err := s.loadParticipant(ctx, senderID, currency)
	if err != nil {
		return participantError(err, "sender")
	}
	receiver, err := s.loadParticipant(ctx, receiverID, currency)
	if err != nil {
		return participantError(err, "receiver")
	}

	party := sender
	if party == nil {
		party = receiver
	}

	for attempt := 0; ; attempt++ {
		decision, usage, err := s.limits.Evaluate(ctx, *party, amount, fee, snap.Limits)
		if err != nil {
			var limitErr *domain.LimitExceededError
			if errors.As(err, &limitErr) {
				return commons.ErrorResponse[models.TransactionResponse]("limit exceeded", string(limitErr.Scope)), err
			}
			return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
		}

		tx := s.buildTransaction(req, amount, fee, currency, senderID, receiverID, snap.Version)

		posting := domain.Posting{
			TransactionID:       tx.ID,
			FromStatus:          domain.TransactionStatusCreated,
			SenderID:            senderID,
			ReceiverID:          receiverID,
			FeeAccountID:        s.feeAccountID,
			SettlementAccountID: s.settlementAccountID,
			Amount:              amount,
			Fee:                 fee,
			GuardVersion:        usage.AccountVersion,
		}

		if decision == LimitDecisionNeedsReview {
			// The park runs under the same version guard as a commit: the
			// parked amount enters the rolling sums, so concurrent
			// submissions must observe it before their own decision lands.
			parked, err := s.ledgerRepo.Park(ctx, tx, posting)
			if err != nil {
				if errors.Is(err, domain.ErrConcurrencyConflict) && attempt < s.commitRetries {
					logger.Info("transaction service park conflict, retrying", logger.Fields{
						"attempt":   attempt + 1,
						"accountId": party.ID,
					})
					if !sleepBackoff(ctx, attempt) {
						return commons.ErrorResponse[models.TransactionResponse]("request cancelled"), ctx.Err()
					}
					continue
				}
				if errors.Is(err, domain.ErrConcurrencyConflict) {
					return commons.ErrorResponse[models.TransactionResponse]("concurrency conflict", "Please retry the submission"), err
				}
				return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
			}
			s.transitioner.Record(ctx, parked, domain.TransactionStatusCreated, domain.TransactionStatusPendingReview, domain.SystemActor, nil)
			if holdErr := s.accountRepo.AdjustHold(ctx, party.ID, amount.Add(fee)); holdErr != nil {
				logger.Error("transaction service place hold failed", holdErr, logger.Fields{
					"transactionId": parked.ID,
					"accountId":     party.ID,
				})
			}

			logger.Info("transaction service parked for review", logger.Fields{
				"transactionId": parked.ID,
				"reference":     parked.Reference,
			})
			return commons.SuccessResponse("transaction pending review", models.MapTransaction(parked)), nil
		}

		committed, err := s.ledgerRepo.CommitNew(ctx, tx, posting)
		if err == nil {
			s.transitioner.Record(ctx, committed, domain.TransactionStatusCreated, domain.TransactionStatusCompleted, domain.SystemActor, nil)
			logger.Info("transaction service auto-approved", logger.Fields{
				"transactionId": committed.ID,
				"reference":     committed.Reference,
				"fee":           fee,
			})
			return commons.SuccessResponse("transaction completed", models.MapTransaction(committed)), nil
		}

		if errors.Is(err, domain.ErrInsufficientBalance) {
			return commons.ErrorResponse[models.TransactionResponse]("insufficient balance", err.Error()), err
		}
		if errors.Is(err, domain.ErrConcurrencyConflict) && attempt < s.commitRetries {
			logger.Info("transaction service commit conflict, retrying", logger.Fields{
				"attempt":   attempt + 1,
				"accountId": party.ID,
			})
			if !sleepBackoff(ctx, attempt) {
				return commons.ErrorResponse[models.TransactionResponse]("request cancelled"), ctx.Err()
			}
			continue
		}
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return commons.ErrorResponse[models.TransactionResponse]("concurrency conflict", "Please retry the submission"), err
		}
		return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
	}
}

func (s *TransactionService) ListTransactions(ctx context.Context, filter domain.TransactionFilter, page, pageSize int) (commons.Response[commons.Page[models.TransactionResponse]], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	items, total, err := s.txRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		logger.Error("transaction service list failed", err, nil)
		return commons.ErrorResponse[commons.Page[models.TransactionResponse]]("failed to list transactions", "Unable to list transactions right now"), err
	}

	mapped := make([]models.TransactionResponse, 0, len(items))
	for _, tx := range items {
		mapped = append(mapped, models.MapTransaction(tx))
	}

	return commons.SuccessResponse("transactions fetched successfully", commons.NewPage(mapped, page, pageSize, total)), nil
}

func (s *TransactionService) AuditTrail(ctx context.Context, transactionID string) (commons.Response[[]models.AuditEventResponse], error) {
	if strings.TrimSpace(transactionID) == "" {
		err := &domain.ValidationError{Detail: "transactionId is required"}
		return commons.ErrorResponse[[]models.AuditEventResponse]("validation failed", err.Error()), err
	}

	if _, err := s.txRepo.Get(ctx, transactionID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[[]models.AuditEventResponse]("transaction not found"), err
		}
		return commons.ErrorResponse[[]models.AuditEventResponse]("failed to fetch audit trail", "Unable to fetch audit trail right now"), err
	}

	events, err := s.auditRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return commons.ErrorResponse[[]models.AuditEventResponse]("failed to fetch audit trail", "Unable to fetch audit trail right now"), err
	}

	mapped := make([]models.AuditEventResponse, 0, len(events))
	for _, event := range events {
		mapped = append(mapped, models.MapAuditEvent(event))
	}

	return commons.SuccessResponse("audit trail fetched successfully", mapped), nil
}

func (s *TransactionService) buildTransaction(
	req models.SubmitTransactionRequest,
	amount, fee decimal.Decimal,
	currency string,
	senderID, receiverID *string,
	policyVersion int,
) domain.Transaction {
	return domain.Transaction{
		ID:            uuid.NewString(),
		Reference:     generateReference("TXN"),
		Type:          req.NormalizedType(),
		Amount:        amount,
		Fee:           fee,
		Currency:      currency,
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Status:        domain.TransactionStatusCreated,
		Description:   optionalID(req.Description),
		PaymentMethod: optionalID(req.PaymentMethod),
		PolicyVersion: policyVersion,
	}
}

// loadParticipant resolves an optional participant account and checks it
// can take part in a posting.
func (s *TransactionService) loadParticipant(ctx context.Context, id *string, currency string) (*domain.Account, error) {
	if id == nil {
		return nil, nil
	}

	account, err := s.accountRepo.Get(ctx, *id)
	if err != nil {
		return nil, err
	}
	if account.System() {
		return nil, &domain.ValidationError{Detail: "system accounts cannot participate in transactions"}
	}
	if !strings.EqualFold(account.Currency, currency) {
		return nil, &domain.ValidationError{Detail: "currency does not match account currency"}
	}

	return &account, nil
}

func participantError(err error, role string) (commons.Response[models.TransactionResponse], error) {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return commons.ErrorResponse[models.TransactionResponse](role + " account not found"), err
	}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", validationErr.Detail), err
	}
	return commons.ErrorResponse[models.TransactionResponse]("failed to submit transaction", "Unable to submit transaction right now"), err
}

func optionalID(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
