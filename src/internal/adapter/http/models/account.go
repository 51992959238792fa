package models

import (
	"strings"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Timezone string `json:"timezone"`
}

func (r CreateAccountRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if len(strings.ToUpper(strings.TrimSpace(r.Currency))) != 3 {
		errs = append(errs, "currency must be 3 characters")
	}
	if tz := strings.TrimSpace(r.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, "timezone must be a valid IANA name")
		}
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Detail: strings.Join(errs, "; ")}
	}
	return nil
}

type DepositRequest struct {
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r DepositRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.AccountID) == "" {
		errs = append(errs, "accountId is required")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Detail: strings.Join(errs, "; ")}
	}
	return nil
}

type AccountResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Currency         string          `json:"currency"`
	Kind             string          `json:"kind"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	HoldAmount       decimal.Decimal `json:"holdAmount"`
	Timezone         string          `json:"timezone"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func MapAccount(account domain.Account) AccountResponse {
	return AccountResponse{
		ID:               account.ID,
		Name:             account.Name,
		Currency:         account.Currency,
		Kind:             string(account.Kind),
		AvailableBalance: account.AvailableBalance,
		HoldAmount:       account.HoldAmount,
		Timezone:         account.Timezone,
		CreatedAt:        account.CreatedAt,
	}
}
