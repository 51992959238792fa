package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var _ repo_interfaces.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository applies postings inside a single database transaction.
// Account rows are locked in ascending id order, matching the in-memory
// backend's lock discipline, so concurrent postings over overlapping
// accounts serialize instead of deadlocking.
type LedgerRepository struct {
	db *sql.DB
}

type lockedAccount struct {
	kind             domain.AccountKind
	availableBalance decimal.Decimal
	version          uint64
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// LimitUsage reads the rolling sums and the account version in one
// statement, so the pair is a consistent snapshot of a single moment.
func (r *LedgerRepository) LimitUsage(ctx context.Context, accountID string, dayStart, monthStart time.Time) (domain.LimitUsage, error) {
	const query = `
SELECT a.version,
       COALESCE(SUM(t.amount) FILTER (WHERE t.created_at >= $2), 0) AS day_sum,
       COALESCE(SUM(t.amount), 0) AS month_sum
FROM accounts a
LEFT JOIN transactions t
       ON COALESCE(t.sender_id, t.receiver_id) = a.id
      AND t.status IN ('COMPLETED', 'PENDING_REVIEW')
      AND t.refund_of_id IS NULL
      AND t.created_at >= $3
WHERE a.id = $1
GROUP BY a.version`

	var usage domain.LimitUsage
	if err := r.db.QueryRowContext(ctx, query, accountID, dayStart, monthStart).Scan(
		&usage.AccountVersion,
		&usage.DaySum,
		&usage.MonthSum,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.LimitUsage{}, domain.ErrRecordNotFound
		}
		return domain.LimitUsage{}, fmt.Errorf("read limit usage: %w", err)
	}

	return usage, nil
}

func (r *LedgerRepository) CommitNew(ctx context.Context, tx domain.Transaction, posting domain.Posting) (domain.Transaction, error) {
	logger.Info("ledger repository commit new", logger.Fields{
		"transactionId": tx.ID,
		"reference":     tx.Reference,
	})

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("begin posting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	debitID := valueOr(posting.SenderID, posting.SettlementAccountID)
	creditID := valueOr(posting.ReceiverID, posting.SettlementAccountID)

	var accounts map[string]lockedAccount
	if accounts, err = lockAccounts(ctx, dbTx, debitID, creditID, posting.FeeAccountID); err != nil {
		return domain.Transaction{}, err
	}

	guarded := accounts[valueOr(posting.SenderID, creditID)]
	if posting.GuardVersion != 0 && guarded.version != posting.GuardVersion {
		err = domain.ErrConcurrencyConflict
		return domain.Transaction{}, err
	}

	if err = applyLegs(ctx, dbTx, accounts, debitID, creditID, posting.FeeAccountID, posting.Amount, posting.Fee); err != nil {
		return domain.Transaction{}, err
	}

	tx.Status = domain.TransactionStatusCompleted
	const insertQuery = `
INSERT INTO transactions (
	id, reference, type, amount, fee, currency, sender_id, receiver_id, status,
	description, payment_method, policy_version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at`

	if err = dbTx.QueryRowContext(
		ctx,
		insertQuery,
		tx.ID,
		tx.Reference,
		tx.Type,
		tx.Amount,
		tx.Fee,
		tx.Currency,
		tx.SenderID,
		tx.ReceiverID,
		tx.Status,
		tx.Description,
		tx.PaymentMethod,
		tx.PolicyVersion,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt); err != nil {
		err = translateError(err)
		return domain.Transaction{}, err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("commit posting transaction: %w", translateError(err))
		return domain.Transaction{}, err
	}

	return tx, nil
}

// Park inserts the transaction as PENDING_REVIEW and bumps the counted
// party's version under the same guard as CommitNew. No balances move, but
// the parked amount enters the rolling sums, so the bump forces concurrent
// submissions that evaluated before the park to re-read their limits.
func (r *LedgerRepository) Park(ctx context.Context, tx domain.Transaction, posting domain.Posting) (domain.Transaction, error) {
	logger.Info("ledger repository park", logger.Fields{
		"transactionId": tx.ID,
		"reference":     tx.Reference,
	})

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("begin park transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	partyID := valueOr(posting.SenderID, valueOr(posting.ReceiverID, posting.SettlementAccountID))

	var accounts map[string]lockedAccount
	if accounts, err = lockAccounts(ctx, dbTx, partyID); err != nil {
		return domain.Transaction{}, err
	}

	if posting.GuardVersion != 0 && accounts[partyID].version != posting.GuardVersion {
		err = domain.ErrConcurrencyConflict
		return domain.Transaction{}, err
	}

	const bumpQuery = `
UPDATE accounts
SET version = version + 1,
    updated_at = NOW()
WHERE id = $1`

	if _, err = dbTx.ExecContext(ctx, bumpQuery, partyID); err != nil {
		err = fmt.Errorf("bump account version: %w", translateError(err))
		return domain.Transaction{}, err
	}

	tx.Status = domain.TransactionStatusPendingReview
	const insertQuery = `
INSERT INTO transactions (
	id, reference, type, amount, fee, currency, sender_id, receiver_id, status,
	description, payment_method, policy_version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at`

	if err = dbTx.QueryRowContext(
		ctx,
		insertQuery,
		tx.ID,
		tx.Reference,
		tx.Type,
		tx.Amount,
		tx.Fee,
		tx.Currency,
		tx.SenderID,
		tx.ReceiverID,
		tx.Status,
		tx.Description,
		tx.PaymentMethod,
		tx.PolicyVersion,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt); err != nil {
		err = translateError(err)
		return domain.Transaction{}, err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("commit park transaction: %w", translateError(err))
		return domain.Transaction{}, err
	}

	return tx, nil
}

func (r *LedgerRepository) CommitPending(ctx context.Context, posting domain.Posting) (domain.Transaction, error) {
	logger.Info("ledger repository commit pending", logger.Fields{
		"transactionId": posting.TransactionID,
	})

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("begin posting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	var status domain.TransactionStatus
	if err = dbTx.QueryRowContext(ctx,
		`SELECT status FROM transactions WHERE id = $1 FOR UPDATE`,
		posting.TransactionID,
	).Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			err = domain.ErrRecordNotFound
			return domain.Transaction{}, err
		}
		return domain.Transaction{}, fmt.Errorf("lock transaction: %w", translateError(err))
	}
	if status != posting.FromStatus {
		err = &domain.InvalidTransitionError{From: status, To: domain.TransactionStatusCompleted}
		return domain.Transaction{}, err
	}

	debitID := valueOr(posting.SenderID, posting.SettlementAccountID)
	creditID := valueOr(posting.ReceiverID, posting.SettlementAccountID)

	var accounts map[string]lockedAccount
	if accounts, err = lockAccounts(ctx, dbTx, debitID, creditID, posting.FeeAccountID); err != nil {
		return domain.Transaction{}, err
	}

	if posting.GuardVersion != 0 {
		guarded := accounts[valueOr(posting.SenderID, creditID)]
		if guarded.version != posting.GuardVersion {
			err = domain.ErrConcurrencyConflict
			return domain.Transaction{}, err
		}
	}

	if err = applyLegs(ctx, dbTx, accounts, debitID, creditID, posting.FeeAccountID, posting.Amount, posting.Fee); err != nil {
		return domain.Transaction{}, err
	}

	updateQuery := `
UPDATE transactions
SET status = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + transactionColumns

	var tx domain.Transaction
	if tx, err = scanTransaction(dbTx.QueryRowContext(ctx, updateQuery, posting.TransactionID, domain.TransactionStatusCompleted)); err != nil {
		return domain.Transaction{}, fmt.Errorf("complete transaction: %w", translateError(err))
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("commit posting transaction: %w", translateError(err))
		return domain.Transaction{}, err
	}

	return tx, nil
}

func (r *LedgerRepository) Refund(ctx context.Context, posting domain.RefundPosting) (domain.Transaction, domain.Transaction, error) {
	logger.Info("ledger repository refund", logger.Fields{
		"originalId": posting.OriginalID,
		"refundId":   posting.Refund.ID,
	})

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Transaction{}, domain.Transaction{}, fmt.Errorf("begin refund transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	lockQuery := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	var original domain.Transaction
	if original, err = scanTransaction(dbTx.QueryRowContext(ctx, lockQuery, posting.OriginalID)); err != nil {
		if err == sql.ErrNoRows {
			err = domain.ErrRecordNotFound
			return domain.Transaction{}, domain.Transaction{}, err
		}
		return domain.Transaction{}, domain.Transaction{}, fmt.Errorf("lock original transaction: %w", translateError(err))
	}
	if original.Status != domain.TransactionStatusCompleted {
		err = &domain.InvalidTransitionError{From: original.Status, To: domain.TransactionStatusRefunded}
		return domain.Transaction{}, domain.Transaction{}, err
	}

	// The compensating legs run against the original participants: debit
	// whoever was credited, credit whoever was debited. The fee stays with
	// the platform.
	debitID := valueOr(original.ReceiverID, posting.SettlementAccountID)
	creditID := valueOr(original.SenderID, posting.SettlementAccountID)

	var accounts map[string]lockedAccount
	if accounts, err = lockAccounts(ctx, dbTx, debitID, creditID); err != nil {
		return domain.Transaction{}, domain.Transaction{}, err
	}

	if err = applyLegs(ctx, dbTx, accounts, debitID, creditID, "", original.Amount, decimal.Zero); err != nil {
		return domain.Transaction{}, domain.Transaction{}, err
	}

	flipQuery := `
UPDATE transactions
SET status = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + transactionColumns

	if original, err = scanTransaction(dbTx.QueryRowContext(ctx, flipQuery, posting.OriginalID, domain.TransactionStatusRefunded)); err != nil {
		return domain.Transaction{}, domain.Transaction{}, fmt.Errorf("flip original transaction: %w", translateError(err))
	}

	refund := posting.Refund
	refund.Status = domain.TransactionStatusCompleted
	const insertQuery = `
INSERT INTO transactions (
	id, reference, type, amount, fee, currency, sender_id, receiver_id, status,
	description, refund_of_id, policy_version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at`

	if err = dbTx.QueryRowContext(
		ctx,
		insertQuery,
		refund.ID,
		refund.Reference,
		refund.Type,
		refund.Amount,
		refund.Fee,
		refund.Currency,
		refund.SenderID,
		refund.ReceiverID,
		refund.Status,
		refund.Description,
		refund.RefundOfID,
		refund.PolicyVersion,
	).Scan(&refund.CreatedAt, &refund.UpdatedAt); err != nil {
		err = translateError(err)
		return domain.Transaction{}, domain.Transaction{}, err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("commit refund transaction: %w", translateError(err))
		return domain.Transaction{}, domain.Transaction{}, err
	}

	return original, refund, nil
}

// lockAccounts row-locks the given accounts in ascending id order and
// returns their current state. A missing account fails the posting.
func lockAccounts(ctx context.Context, dbTx *sql.Tx, ids ...string) (map[string]lockedAccount, error) {
	unique := make(map[string]struct{}, len(ids))
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	const query = `
SELECT id, kind, available_balance, version
FROM accounts
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`

	rows, err := dbTx.QueryContext(ctx, query, pq.Array(ordered))
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", translateError(err))
	}
	defer rows.Close()

	accounts := make(map[string]lockedAccount, len(ordered))
	for rows.Next() {
		var (
			id   string
			acct lockedAccount
		)
		if err := rows.Scan(&id, &acct.kind, &acct.availableBalance, &acct.version); err != nil {
			return nil, fmt.Errorf("scan locked account: %w", err)
		}
		accounts[id] = acct
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	if len(accounts) != len(ordered) {
		return nil, domain.ErrRecordNotFound
	}

	return accounts, nil
}

// applyLegs moves the money. Caller holds the row locks; the balance check
// runs before any update so a failed precondition leaves nothing applied.
func applyLegs(ctx context.Context, dbTx *sql.Tx, accounts map[string]lockedAccount, debitID, creditID, feeID string, amount, fee decimal.Decimal) error {
	debit := accounts[debitID]
	total := amount.Add(fee)
	if debit.kind == domain.AccountKindCustomer && debit.availableBalance.LessThan(total) {
		return domain.ErrInsufficientBalance
	}

	const moveQuery = `
UPDATE accounts
SET available_balance = available_balance + $2::numeric,
    version = version + 1,
    updated_at = NOW()
WHERE id = $1`

	if _, err := dbTx.ExecContext(ctx, moveQuery, debitID, total.Neg()); err != nil {
		return fmt.Errorf("debit account: %w", translateError(err))
	}
	if _, err := dbTx.ExecContext(ctx, moveQuery, creditID, amount); err != nil {
		return fmt.Errorf("credit account: %w", translateError(err))
	}
	if fee.IsPositive() {
		if _, err := dbTx.ExecContext(ctx, moveQuery, feeID, fee); err != nil {
			return fmt.Errorf("credit fee account: %w", translateError(err))
		}
	}

	return nil
}

func valueOr(id *string, fallback string) string {
	if id != nil {
		return *id
	}
	return fallback
}
