package service_interfaces

import (
	"context"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/models"
	"github.com/PersonalHub360/gateway-sub002/src/internal/commons"
)

type AccountService interface {
	CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error)
	GetBalance(ctx context.Context, accountID string) (commons.Response[models.AccountResponse], error)
	Deposit(ctx context.Context, req models.DepositRequest) (commons.Response[models.AccountResponse], error)
}
