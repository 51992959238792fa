package domain

import (
	"errors"
	"fmt"
)

var ErrRecordNotFound = errors.New("Record not found")
var ErrInsufficientBalance = errors.New("Insufficient balance")
var ErrPolicyUnavailable = errors.New("Policy unavailable")
var ErrConcurrencyConflict = errors.New("Concurrency conflict")
var ErrRefundAlreadyIssued = errors.New("Refund already issued")
var ErrUnauthorizedActor = errors.New("Unauthorized actor")

// LimitScope identifies which boundary a limit rejection hit.
type LimitScope string

const (
	LimitScopePerTransaction LimitScope = "per-transaction"
	LimitScopeDaily          LimitScope = "daily"
	LimitScopeMonthly        LimitScope = "monthly"
)

type LimitExceededError struct {
	Scope LimitScope
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limit exceeded: %s", e.Scope)
}

type InvalidTransitionError struct {
	From TransactionStatus
	To   TransactionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// IsRetryable reports whether the error is a transient conflict worth
// retrying with backoff rather than surfacing to the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
