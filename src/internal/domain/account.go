package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountKind string

const (
	AccountKindCustomer   AccountKind = "CUSTOMER"
	AccountKindFee        AccountKind = "FEE"
	AccountKindSettlement AccountKind = "SETTLEMENT"
)

type Account struct {
	ID               string
	Name             string
	Currency         string
	Kind             AccountKind
	AvailableBalance decimal.Decimal
	HoldAmount       decimal.Decimal
	Timezone         string
	Version          uint64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// System reports whether the account belongs to the platform rather than a
// customer. System accounts may carry a negative available balance: the
// settlement account stands in for the outside world on cash-in/cash-out
// legs so that debits and credits stay balanced inside the engine.
func (a Account) System() bool {
	return a.Kind == AccountKindFee || a.Kind == AccountKindSettlement
}

// Location resolves the account's IANA timezone for rolling-limit windows.
// An unset or invalid timezone falls back to UTC.
func (a Account) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
