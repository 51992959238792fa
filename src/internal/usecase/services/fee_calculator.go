package services

import (
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeFee prices an amount against a fee rule:
// clamp(amount*percent/100 + fixed, min, max), rounded half-up to the
// currency's two minor-unit places. Deterministic, no side effects.
func ComputeFee(amount decimal.Decimal, rule domain.FeeRule) decimal.Decimal {
	fee := amount.Mul(rule.Percent).Div(oneHundred).Add(rule.FixedFee)

	if fee.LessThan(rule.MinFee) {
		fee = rule.MinFee
	}
	if fee.GreaterThan(rule.MaxFee) {
		fee = rule.MaxFee
	}

	// decimal.Round rounds half away from zero; fees are non-negative so
	// this is round-half-up.
	return fee.Round(2)
}
