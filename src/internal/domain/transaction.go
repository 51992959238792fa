package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeSendMoney   TransactionType = "SEND_MONEY"
	TransactionTypeCashIn      TransactionType = "CASH_IN"
	TransactionTypeCashOut     TransactionType = "CASH_OUT"
	TransactionTypeBillPayment TransactionType = "BILL_PAYMENT"
	TransactionTypeMobileTopup TransactionType = "MOBILE_TOPUP"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeSendMoney, TransactionTypeCashIn, TransactionTypeCashOut,
		TransactionTypeBillPayment, TransactionTypeMobileTopup:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusCreated       TransactionStatus = "CREATED"
	TransactionStatusCompleted     TransactionStatus = "COMPLETED"
	TransactionStatusPendingReview TransactionStatus = "PENDING_REVIEW"
	TransactionStatusFailed        TransactionStatus = "FAILED"
	TransactionStatusRefunded      TransactionStatus = "REFUNDED"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusCreated, TransactionStatusCompleted, TransactionStatusPendingReview,
		TransactionStatusFailed, TransactionStatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition exists from s. Refund is an
// explicit edge out of COMPLETED, so COMPLETED is not terminal.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusFailed || s == TransactionStatusRefunded
}

var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusCreated:       {TransactionStatusCompleted, TransactionStatusPendingReview},
	TransactionStatusPendingReview: {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusCompleted:     {TransactionStatusRefunded},
}

// CanTransition is the single source of truth for the transaction lifecycle.
// Status fields change only through transitions this table allows.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Transaction struct {
	ID            string
	Reference     string
	Type          TransactionType
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Currency      string
	SenderID      *string
	ReceiverID    *string
	Status        TransactionStatus
	Description   *string
	PaymentMethod *string
	FailureReason *string
	RefundOfID    *string
	PolicyVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CountedPartyID is the account rolling limits are charged against: the
// sender when present, otherwise the receiver (cash-in).
func (t Transaction) CountedPartyID() string {
	if t.SenderID != nil {
		return *t.SenderID
	}
	if t.ReceiverID != nil {
		return *t.ReceiverID
	}
	return ""
}

type TransactionFilter struct {
	Status     *TransactionStatus
	Type       *TransactionType
	DateFrom   *time.Time
	DateTo     *time.Time
	SearchText string
}
