package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
)

const transactionColumns = `id, reference, type, amount, fee, currency, sender_id, receiver_id, status,
	description, payment_method, failure_reason, refund_of_id, policy_version, created_at, updated_at`

var _ repo_interfaces.TransactionRepository = (*TransactionRepository)(nil)

type TransactionRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	logger.Info("transaction repository create", logger.Fields{
		"transactionId": tx.ID,
		"reference":     tx.Reference,
		"type":          tx.Type,
	})

	const query = `
INSERT INTO transactions (
	id, reference, type, amount, fee, currency, sender_id, receiver_id, status,
	description, payment_method, refund_of_id, policy_version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING created_at, updated_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
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
		tx.RefundOfID,
		tx.PolicyVersion,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt); err != nil {
		logger.Error("transaction repository create failed", err, logger.Fields{
			"transactionId": tx.ID,
		})
		return domain.Transaction{}, fmt.Errorf("create transaction: %w", translateError(err))
	}

	return tx, nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Transaction{}, domain.ErrRecordNotFound
		}
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.TransactionStatus, failureReason *string) (domain.Transaction, error) {
	if !domain.CanTransition(from, to) {
		return domain.Transaction{}, &domain.InvalidTransitionError{From: from, To: to}
	}

	query := `
UPDATE transactions
SET status = $3,
    failure_reason = COALESCE($4, failure_reason),
    updated_at = NOW()
WHERE id = $1 AND status = $2
RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, from, to, failureReason))
	if err == nil {
		return tx, nil
	}
	if err != sql.ErrNoRows {
		return domain.Transaction{}, fmt.Errorf("update transaction status: %w", translateError(err))
	}

	// The compare-and-set missed: report the status that won.
	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return domain.Transaction{}, getErr
	}
	return domain.Transaction{}, &domain.InvalidTransitionError{From: current.Status, To: to}
}

func (r *TransactionRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	query := `
SELECT ` + transactionColumns + `
FROM transactions
WHERE status = $1 AND created_at < $2
ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, domain.TransactionStatusPendingReview, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	defer rows.Close()

	var pending []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		pending = append(pending, tx)
	}
	return pending, rows.Err()
}

func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter, page, pageSize int) ([]domain.Transaction, int64, error) {
	conditions := []string{"TRUE"}
	args := []any{}

	arg := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != nil {
		conditions = append(conditions, "t.status = "+arg(*filter.Status))
	}
	if filter.Type != nil {
		conditions = append(conditions, "t.type = "+arg(*filter.Type))
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "t.created_at >= "+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "t.created_at <= "+arg(*filter.DateTo))
	}
	if needle := strings.TrimSpace(filter.SearchText); needle != "" {
		pattern := arg("%" + needle + "%")
		conditions = append(conditions, `(t.id ILIKE `+pattern+`
			OR t.reference ILIKE `+pattern+`
			OR EXISTS (SELECT 1 FROM accounts a WHERE a.id IN (t.sender_id, t.receiver_id) AND a.name ILIKE `+pattern+`))`)
	}

	query := `
SELECT ` + prefixColumns("t") + `, COUNT(*) OVER() AS total_count
FROM transactions t
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY t.created_at DESC, t.id DESC
LIMIT ` + arg(pageSize) + ` OFFSET ` + arg((page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var (
		items []domain.Transaction
		total int64
	)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.Reference,
			&tx.Type,
			&tx.Amount,
			&tx.Fee,
			&tx.Currency,
			&tx.SenderID,
			&tx.ReceiverID,
			&tx.Status,
			&tx.Description,
			&tx.PaymentMethod,
			&tx.FailureReason,
			&tx.RefundOfID,
			&tx.PolicyVersion,
			&tx.CreatedAt,
			&tx.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if total == 0 && len(items) == 0 {
		// The window count is absent when the page is past the end.
		countQuery := `SELECT COUNT(1) FROM transactions t WHERE ` + strings.Join(conditions, " AND ")
		if err := r.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count transactions: %w", err)
		}
	}

	return items, total, nil
}

func prefixColumns(alias string) string {
	parts := strings.Split(transactionColumns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.Reference,
		&tx.Type,
		&tx.Amount,
		&tx.Fee,
		&tx.Currency,
		&tx.SenderID,
		&tx.ReceiverID,
		&tx.Status,
		&tx.Description,
		&tx.PaymentMethod,
		&tx.FailureReason,
		&tx.RefundOfID,
		&tx.PolicyVersion,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	return tx, err
}
