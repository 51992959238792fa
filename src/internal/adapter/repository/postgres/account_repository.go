package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ repo_interfaces.AccountRepository = (*AccountRepository)(nil)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// EnsureSystemAccounts seeds the fee and settlement accounts on startup.
// Re-running against an initialized database is a no-op.
func EnsureSystemAccounts(ctx context.Context, db *sql.DB, currency, feeAccountID, settlementAccountID, timezone string) error {
	const query = `
INSERT INTO accounts (id, name, currency, kind, timezone)
VALUES
	($1, 'Platform Fees', $3, 'FEE', $4),
	($2, 'Platform Settlement', $3, 'SETTLEMENT', $4)
ON CONFLICT (id) DO NOTHING`

	if _, err := db.ExecContext(ctx, query, feeAccountID, settlementAccountID, currency, timezone); err != nil {
		return fmt.Errorf("ensure system accounts: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Kind == "" {
		account.Kind = domain.AccountKindCustomer
	}

	logger.Info("account repository create", logger.Fields{
		"accountId": account.ID,
		"kind":      account.Kind,
	})

	const query = `
INSERT INTO accounts (id, name, currency, kind, timezone)
VALUES ($1, $2, $3, $4, $5)
RETURNING available_balance, hold_amount, version, created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		account.ID,
		account.Name,
		account.Currency,
		account.Kind,
		account.Timezone,
	).Scan(&account.AvailableBalance, &account.HoldAmount, &account.Version, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrConcurrencyConflict
		}
		logger.Error("account repository create failed", err, logger.Fields{
			"accountId": account.ID,
		})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (domain.Account, error) {
	const query = `
SELECT id, name, currency, kind, available_balance, hold_amount, timezone, version, created_at, updated_at
FROM accounts
WHERE id = $1`

	var account domain.Account
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.Currency,
		&account.Kind,
		&account.AvailableBalance,
		&account.HoldAmount,
		&account.Timezone,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

// Deposit moves funds from the settlement account into a customer account.
// The settlement side may go negative: it mirrors money arriving from
// outside the engine.
func (r *AccountRepository) Deposit(ctx context.Context, id string, amount decimal.Decimal) error {
	logger.Info("account repository deposit", logger.Fields{
		"accountId": id,
		"amount":    amount,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deposit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const creditQuery = `
UPDATE accounts
SET available_balance = available_balance + $2::numeric,
    version = version + 1,
    updated_at = NOW()
WHERE id = $1`

	var result sql.Result
	if result, err = tx.ExecContext(ctx, creditQuery, id, amount); err != nil {
		return fmt.Errorf("credit deposit: %w", translateError(err))
	}
	var rows int64
	if rows, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("credit deposit rows affected: %w", err)
	}
	if rows == 0 {
		err = domain.ErrRecordNotFound
		return err
	}

	const debitQuery = `
UPDATE accounts
SET available_balance = available_balance - $1::numeric,
    version = version + 1,
    updated_at = NOW()
WHERE kind = 'SETTLEMENT'`

	if _, err = tx.ExecContext(ctx, debitQuery, amount); err != nil {
		return fmt.Errorf("debit settlement: %w", translateError(err))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit deposit transaction: %w", translateError(err))
	}
	return nil
}

func (r *AccountRepository) AdjustHold(ctx context.Context, id string, delta decimal.Decimal) error {
	const query = `
UPDATE accounts
SET hold_amount = GREATEST(hold_amount + $2::numeric, 0),
    updated_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("adjust hold: %w", translateError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust hold rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
