package service_interfaces

import (
	"context"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/models"
	"github.com/PersonalHub360/gateway-sub002/src/internal/commons"
)

type ApprovalService interface {
	ApproveTransaction(ctx context.Context, req models.ApproveTransactionRequest) (commons.Response[models.TransactionResponse], error)
	RejectTransaction(ctx context.Context, req models.RejectTransactionRequest) (commons.Response[models.TransactionResponse], error)
	RefundTransaction(ctx context.Context, req models.RefundTransactionRequest) (commons.Response[models.TransactionResponse], error)
}
