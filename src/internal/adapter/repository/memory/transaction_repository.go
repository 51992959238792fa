package memory

import (
	"context"
	"strings"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/google/uuid"
)

var _ repo_interfaces.TransactionRepository = (*TransactionRepository)(nil)

type TransactionRepository struct {
	store *Store
}

func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

func (r *TransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	_ = ctx

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txs[tx.ID]; exists {
		return domain.Transaction{}, domain.ErrConcurrencyConflict
	}

	stored := tx
	s.txs[tx.ID] = &stored
	s.order = append(s.order, tx.ID)

	return tx, nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (domain.Transaction, error) {
	_ = ctx

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return domain.Transaction{}, domain.ErrRecordNotFound
	}
	return *tx, nil
}

func (r *TransactionRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.TransactionStatus, failureReason *string) (domain.Transaction, error) {
	_ = ctx

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return domain.Transaction{}, domain.ErrRecordNotFound
	}
	if tx.Status != from || !domain.CanTransition(from, to) {
		return domain.Transaction{}, &domain.InvalidTransitionError{From: tx.Status, To: to}
	}

	tx.Status = to
	if failureReason != nil {
		tx.FailureReason = failureReason
	}
	tx.UpdatedAt = time.Now().UTC()

	return *tx, nil
}

func (r *TransactionRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	_ = ctx

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, id := range s.order {
		tx := s.txs[id]
		if tx.Status == domain.TransactionStatusPendingReview && tx.CreatedAt.Before(cutoff) {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter, page, pageSize int) ([]domain.Transaction, int64, error) {
	_ = ctx

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Transaction
	// Newest first: insertion order reversed.
	for i := len(s.order) - 1; i >= 0; i-- {
		tx := s.txs[s.order[i]]
		if r.matches(*tx, filter) {
			matched = append(matched, *tx)
		}
	}

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], total, nil
}

func (r *TransactionRepository) matches(tx domain.Transaction, filter domain.TransactionFilter) bool {
	if filter.Status != nil && tx.Status != *filter.Status {
		return false
	}
	if filter.Type != nil && tx.Type != *filter.Type {
		return false
	}
	if filter.DateFrom != nil && tx.CreatedAt.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && tx.CreatedAt.After(*filter.DateTo) {
		return false
	}

	if filter.SearchText != "" {
		needle := strings.ToLower(strings.TrimSpace(filter.SearchText))
		if !strings.Contains(strings.ToLower(tx.ID), needle) &&
			!strings.Contains(strings.ToLower(tx.Reference), needle) &&
			!r.participantMatches(tx.SenderID, needle) &&
			!r.participantMatches(tx.ReceiverID, needle) {
			return false
		}
	}

	return true
}

// participantMatches checks the participant's display name. Caller holds
// the store mutex; account names are immutable after creation so the slot
// lock is not taken here.
func (r *TransactionRepository) participantMatches(accountID *string, needle string) bool {
	if accountID == nil {
		return false
	}
	slot, ok := r.store.accounts[*accountID]
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(slot.acct.Name), needle)
}
