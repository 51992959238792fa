package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/shopspring/decimal"
)

// Store is an in-process ledger backend. Mutations to a given account are
// serialized through a per-account mutex; postings touching disjoint
// accounts proceed in parallel. Lock order is fixed: account slots in
// ascending id order first, then the store mutex.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*accountSlot
	txs          map[string]*domain.Transaction
	order        []string
	audit        []domain.AuditEvent
	actors       map[string]domain.Actor
	feeID        string
	settlementID string
}

type accountSlot struct {
	mu   sync.Mutex
	acct domain.Account
}

// NewStore seeds the platform fee and settlement accounts so postings have
// somewhere to book fees and external legs from the first request on.
func NewStore(currency, feeAccountID, settlementAccountID, timezone string) *Store {
	s := &Store{
		accounts:     make(map[string]*accountSlot),
		txs:          make(map[string]*domain.Transaction),
		actors:       make(map[string]domain.Actor),
		feeID:        feeAccountID,
		settlementID: settlementAccountID,
	}

	now := time.Now().UTC()
	s.accounts[feeAccountID] = &accountSlot{acct: domain.Account{
		ID:               feeAccountID,
		Name:             "Platform Fees",
		Currency:         currency,
		Kind:             domain.AccountKindFee,
		AvailableBalance: decimal.Zero,
		HoldAmount:       decimal.Zero,
		Timezone:         timezone,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}}
	s.accounts[settlementAccountID] = &accountSlot{acct: domain.Account{
		ID:               settlementAccountID,
		Name:             "Platform Settlement",
		Currency:         currency,
		Kind:             domain.AccountKindSettlement,
		AvailableBalance: decimal.Zero,
		HoldAmount:       decimal.Zero,
		Timezone:         timezone,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}}

	return s
}

func (s *Store) slot(id string) (*accountSlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.accounts[id]
	return slot, ok
}

// lockAccounts acquires the slots for the given ids in ascending id order
// and returns them together with an unlock function. Duplicate ids are
// collapsed so a slot is never locked twice.
func (s *Store) lockAccounts(ids ...string) (map[string]*accountSlot, func(), error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)

	slots := make(map[string]*accountSlot, len(unique))
	locked := make([]*accountSlot, 0, len(unique))
	for _, id := range unique {
		slot, ok := s.slot(id)
		if !ok {
			for i := len(locked) - 1; i >= 0; i-- {
				locked[i].mu.Unlock()
			}
			return nil, nil, domain.ErrRecordNotFound
		}
		slot.mu.Lock()
		locked = append(locked, slot)
		slots[id] = slot
	}

	unlock := func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
	return slots, unlock, nil
}
