package domain

import "github.com/shopspring/decimal"

// FeeRule prices one transaction type. The computed fee is
// amount*Percent/100 + FixedFee clamped into [MinFee, MaxFee].
type FeeRule struct {
	Type     TransactionType
	Percent  decimal.Decimal
	FixedFee decimal.Decimal
	MinFee   decimal.Decimal
	MaxFee   decimal.Decimal
}

type LimitPolicy struct {
	MinAmount             decimal.Decimal
	MaxAmount             decimal.Decimal
	DailyLimit            decimal.Decimal
	MonthlyLimit          decimal.Decimal
	AutoApprovalThreshold decimal.Decimal
}

// PolicySnapshot is an immutable view of the active fee and limit rules.
// The engine pins one snapshot per evaluation and never mutates it; the
// provider swaps whole snapshots on reload.
type PolicySnapshot struct {
	Version  int
	FeeRules map[TransactionType]FeeRule
	Limits   LimitPolicy
}

// FeeRuleFor returns the fee rule for the given type, or
// ErrPolicyUnavailable when the snapshot carries none.
func (s PolicySnapshot) FeeRuleFor(t TransactionType) (FeeRule, error) {
	rule, ok := s.FeeRules[t]
	if !ok {
		return FeeRule{}, ErrPolicyUnavailable
	}
	return rule, nil
}
