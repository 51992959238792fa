package notify

import (
	"context"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
)

// StateChange is broadcast after every accepted transition. Delivery is
// fire-and-forget: a dispatcher failure never rolls back ledger state.
type StateChange struct {
	TransactionID string                   `json:"transactionId"`
	Reference     string                   `json:"reference"`
	OldStatus     domain.TransactionStatus `json:"oldStatus"`
	NewStatus     domain.TransactionStatus `json:"newStatus"`
}

type Dispatcher interface {
	TransactionStateChanged(ctx context.Context, event StateChange)
}

// LogDispatcher writes state changes to the process log. It stands in for
// the external push/email/SMS delivery service.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) TransactionStateChanged(_ context.Context, event StateChange) {
	logger.Info("transaction state changed", logger.Fields{
		"transactionId": event.TransactionID,
		"reference":     event.Reference,
		"oldStatus":     event.OldStatus,
		"newStatus":     event.NewStatus,
	})
}
