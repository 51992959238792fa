package models

import (
	"strings"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/shopspring/decimal"
)

type SubmitTransactionRequest struct {
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	SenderID      string          `json:"senderId"`
	ReceiverID    string          `json:"receiverId"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"paymentMethod"`
}

func (r SubmitTransactionRequest) Validate() error {
	var errs []string

	txType := domain.TransactionType(strings.ToUpper(strings.TrimSpace(r.Type)))
	if !txType.Valid() {
		errs = append(errs, "type must be one of SEND_MONEY, CASH_IN, CASH_OUT, BILL_PAYMENT, MOBILE_TOPUP")
	}

	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}

	currency := strings.ToUpper(strings.TrimSpace(r.Currency))
	if len(currency) != 3 {
		errs = append(errs, "currency must be 3 characters")
	}

	sender := strings.TrimSpace(r.SenderID)
	receiver := strings.TrimSpace(r.ReceiverID)

	switch txType {
	case domain.TransactionTypeSendMoney:
		if sender == "" {
			errs = append(errs, "senderId is required for SEND_MONEY")
		}
		if receiver == "" {
			errs = append(errs, "receiverId is required for SEND_MONEY")
		}
	case domain.TransactionTypeCashIn:
		if receiver == "" {
			errs = append(errs, "receiverId is required for CASH_IN")
		}
		if sender != "" {
			errs = append(errs, "senderId must be empty for CASH_IN")
		}
	case domain.TransactionTypeCashOut, domain.TransactionTypeBillPayment, domain.TransactionTypeMobileTopup:
		if sender == "" {
			errs = append(errs, "senderId is required for "+string(txType))
		}
		if receiver != "" {
			errs = append(errs, "receiverId must be empty for "+string(txType))
		}
	}

	if sender != "" && sender == receiver {
		errs = append(errs, "senderId and receiverId cannot be the same")
	}

	if len(strings.TrimSpace(r.Description)) > 256 {
		errs = append(errs, "description must not exceed 256 characters")
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Detail: strings.Join(errs, "; ")}
	}
	return nil
}

// NormalizedType returns the upper-cased transaction type.
func (r SubmitTransactionRequest) NormalizedType() domain.TransactionType {
	return domain.TransactionType(strings.ToUpper(strings.TrimSpace(r.Type)))
}

type ActorCredentials struct {
	ActorID     string `json:"actorId"`
	ActorSecret string `json:"actorSecret"`
}

func (c ActorCredentials) Validate() error {
	var errs []string
	if strings.TrimSpace(c.ActorID) == "" {
		errs = append(errs, "actorId is required")
	}
	if strings.TrimSpace(c.ActorSecret) == "" {
		errs = append(errs, "actorSecret is required")
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Detail: strings.Join(errs, "; ")}
	}
	return nil
}

type ApproveTransactionRequest struct {
	TransactionID string `json:"transactionId"`
	ActorCredentials
}

func (r ApproveTransactionRequest) Validate() error {
	if strings.TrimSpace(r.TransactionID) == "" {
		return &domain.ValidationError{Detail: "transactionId is required"}
	}
	return r.ActorCredentials.Validate()
}

type RejectTransactionRequest struct {
	TransactionID string `json:"transactionId"`
	Reason        string `json:"reason"`
	ActorCredentials
}

func (r RejectTransactionRequest) Validate() error {
	var errs []string
	if strings.TrimSpace(r.TransactionID) == "" {
		errs = append(errs, "transactionId is required")
	}
	if strings.TrimSpace(r.Reason) == "" {
		errs = append(errs, "reason is required")
	}
	if err := r.ActorCredentials.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Detail: strings.Join(errs, "; ")}
	}
	return nil
}

type RefundTransactionRequest struct {
	TransactionID string `json:"transactionId"`
	ActorCredentials
}

func (r RefundTransactionRequest) Validate() error {
	if strings.TrimSpace(r.TransactionID) == "" {
		return &domain.ValidationError{Detail: "transactionId is required"}
	}
	return r.ActorCredentials.Validate()
}

type TransactionResponse struct {
	ID            string          `json:"id"`
	Reference     string          `json:"reference"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	TotalDebit    decimal.Decimal `json:"totalDebit"`
	Currency      string          `json:"currency"`
	SenderID      *string         `json:"senderId,omitempty"`
	ReceiverID    *string         `json:"receiverId,omitempty"`
	Status        string          `json:"status"`
	Description   *string         `json:"description,omitempty"`
	PaymentMethod *string         `json:"paymentMethod,omitempty"`
	FailureReason *string         `json:"failureReason,omitempty"`
	RefundOfID    *string         `json:"refundOfId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func MapTransaction(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID,
		Reference:     tx.Reference,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Fee:           tx.Fee,
		TotalDebit:    tx.Amount.Add(tx.Fee),
		Currency:      tx.Currency,
		SenderID:      tx.SenderID,
		ReceiverID:    tx.ReceiverID,
		Status:        string(tx.Status),
		Description:   tx.Description,
		PaymentMethod: tx.PaymentMethod,
		FailureReason: tx.FailureReason,
		RefundOfID:    tx.RefundOfID,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
}

type AuditEventResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	FromStatus    string    `json:"fromStatus"`
	ToStatus      string    `json:"toStatus"`
	Actor         string    `json:"actor"`
	Reason        *string   `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func MapAuditEvent(event domain.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:            event.ID,
		TransactionID: event.TransactionID,
		FromStatus:    string(event.FromStatus),
		ToStatus:      string(event.ToStatus),
		Actor:         event.Actor,
		Reason:        event.Reason,
		CreatedAt:     event.CreatedAt,
	}
}
