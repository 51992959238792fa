package domain

import "github.com/shopspring/decimal"

// Posting is the instruction the ledger store applies as one all-or-nothing
// unit: flip the transaction status (compare-and-set on FromStatus), debit
// the sender amount+fee, credit the receiver the amount, credit the fee
// account the fee. A nil sender debits the settlement account (cash-in); a
// nil receiver credits it (cash-out, bill payment, top-up).
type Posting struct {
	TransactionID       string
	FromStatus          TransactionStatus
	SenderID            *string
	ReceiverID          *string
	FeeAccountID        string
	SettlementAccountID string
	Amount              decimal.Decimal
	Fee                 decimal.Decimal

	// GuardVersion is the counted party's account version observed when the
	// limit decision was made. A commit against a newer version fails with
	// ErrConcurrencyConflict so the decision is re-evaluated. Zero disables
	// the guard (approve path, where only the balance is re-checked).
	GuardVersion uint64
}

// RefundPosting reverses the economic effect of a completed transaction:
// the original flips COMPLETED -> REFUNDED and the compensating transaction
// is committed in the same unit. The fee is not refunded.
type RefundPosting struct {
	OriginalID          string
	Refund              Transaction
	FeeAccountID        string
	SettlementAccountID string
}

// LimitUsage is a consistent read of the rolling sums used by limit
// checks, taken together with the account version that guards the commit.
type LimitUsage struct {
	DaySum         decimal.Decimal
	MonthSum       decimal.Decimal
	AccountVersion uint64
}
