package services

import (
	"context"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"github.com/shopspring/decimal"
)

type LimitDecision string

const (
	LimitDecisionAccepted    LimitDecision = "ACCEPTED"
	LimitDecisionNeedsReview LimitDecision = "NEEDS_REVIEW"
)

type LimitEnforcer struct {
	ledgerRepo repo_interfaces.LedgerRepository
}

func NewLimitEnforcer(ledgerRepo repo_interfaces.LedgerRepository) *LimitEnforcer {
	return &LimitEnforcer{ledgerRepo: ledgerRepo}
}

// Evaluate checks an amount against the per-transaction bounds and the
// rolling daily and monthly windows of the counted party, read from the
// authoritative ledger history. The returned usage carries the account
// version the sums were taken at; the commit is guarded on it so a
// decision invalidated by a concurrent posting is detected, not honored.
func (e *LimitEnforcer) Evaluate(
	ctx context.Context,
	party domain.Account,
	amount decimal.Decimal,
	fee decimal.Decimal,
	limits domain.LimitPolicy,
) (LimitDecision, domain.LimitUsage, error) {
	if amount.LessThan(limits.MinAmount) || amount.GreaterThan(limits.MaxAmount) {
		return "", domain.LimitUsage{}, &domain.LimitExceededError{Scope: domain.LimitScopePerTransaction}
	}

	dayStart, monthStart := windowStarts(time.Now(), party.Location())
	usage, err := e.ledgerRepo.LimitUsage(ctx, party.ID, dayStart, monthStart)
	if err != nil {
		return "", domain.LimitUsage{}, err
	}

	if usage.DaySum.Add(amount).GreaterThan(limits.DailyLimit) {
		logger.Info("limit enforcer daily limit exceeded", logger.Fields{
			"accountId": party.ID,
			"daySum":    usage.DaySum,
			"amount":    amount,
		})
		return "", usage, &domain.LimitExceededError{Scope: domain.LimitScopeDaily}
	}
	if usage.MonthSum.Add(amount).GreaterThan(limits.MonthlyLimit) {
		logger.Info("limit enforcer monthly limit exceeded", logger.Fields{
			"accountId": party.ID,
			"monthSum":  usage.MonthSum,
			"amount":    amount,
		})
		return "", usage, &domain.LimitExceededError{Scope: domain.LimitScopeMonthly}
	}

	// Crossing the auto-approval threshold always forces manual review,
	// even though the amount is within limits.
	if amount.Add(fee).GreaterThan(limits.AutoApprovalThreshold) {
		return LimitDecisionNeedsReview, usage, nil
	}

	return LimitDecisionAccepted, usage, nil
}

// windowStarts returns the start of the current calendar day and month in
// the account's timezone.
func windowStarts(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return dayStart, monthStart
}
