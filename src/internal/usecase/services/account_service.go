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
	"github.com/PersonalHub360/gateway-sub002/src/internal/usecase/service_interfaces"
)

// Verify that AccountService implements the service_interfaces.AccountService interface
var _ service_interfaces.AccountService = (*AccountService)(nil)

type AccountService struct {
	accountRepo     repo_interfaces.AccountRepository
	currency        string
	defaultTimezone string
}

func NewAccountService(accountRepo repo_interfaces.AccountRepository, currency, defaultTimezone string) *AccountService {
	return &AccountService{
		accountRepo:     accountRepo,
		currency:        strings.ToUpper(strings.TrimSpace(currency)),
		defaultTimezone: defaultTimezone,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service create request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency != s.currency {
		err := &domain.ValidationError{Detail: "currency is not supported by this engine"}
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = s.defaultTimezone
	}

	account, err := s.accountRepo.Create(ctx, domain.Account{
		Name:     strings.TrimSpace(req.Name),
		Currency: currency,
		Kind:     domain.AccountKindCustomer,
		Timezone: timezone,
	})
	if err != nil {
		logger.Error("account service create failed", err, nil)
		return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
	}

	logger.Info("account service create success", logger.Fields{
		"accountId": account.ID,
	})
	return commons.SuccessResponse("account created successfully", models.MapAccount(account)), nil
}

func (s *AccountService) GetBalance(ctx context.Context, accountID string) (commons.Response[models.AccountResponse], error) {
	if strings.TrimSpace(accountID) == "" {
		err := &domain.ValidationError{Detail: "accountId is required"}
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	account, err := s.accountRepo.Get(ctx, strings.TrimSpace(accountID))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.AccountResponse]("account not found"), err
		}
		return commons.ErrorResponse[models.AccountResponse]("failed to fetch account", "Unable to fetch account right now"), err
	}

	return commons.SuccessResponse("account fetched successfully", models.MapAccount(account)), nil
}

func (s *AccountService) Deposit(ctx context.Context, req models.DepositRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service deposit request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), err
	}

	accountID := strings.TrimSpace(req.AccountID)
	if err := s.accountRepo.Deposit(ctx, accountID, req.Amount.Round(2)); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.AccountResponse]("account not found"), err
		}
		logger.Error("account service deposit failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[models.AccountResponse]("failed to deposit", "Unable to deposit right now"), err
	}

	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return commons.ErrorResponse[models.AccountResponse]("failed to fetch account", "Unable to fetch account right now"), err
	}

	logger.Info("account service deposit success", logger.Fields{
		"accountId": accountID,
		"amount":    req.Amount,
	})
	return commons.SuccessResponse("deposit successful", models.MapAccount(account)), nil
}
