package service_interfaces

import (
	"context"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/models"
	"github.com/PersonalHub360/gateway-sub002/src/internal/commons"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
)

type TransactionService interface {
	SubmitTransaction(ctx context.Context, req models.SubmitTransactionRequest) (commons.Response[models.TransactionResponse], error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, page, pageSize int) (commons.Response[commons.Page[models.TransactionResponse]], error)
	AuditTrail(ctx context.Context, transactionID string) (commons.Response[[]models.AuditEventResponse], error)
}
