/*
Package memory provides an in-memory ledger.TxStore for tests and demos.

WithTx is simulated with a deep snapshot taken before fn runs and restored
if fn fails, which matches the rollback semantics of the SQLite store.
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pocketledger/ledger-core/ledger"
)

type balanceKey struct {
	Owner    ledger.OwnerID
	Currency string
}

// Store implements ledger.TxStore on maps.
type Store struct {
	mu           sync.RWMutex
	transactions map[ledger.TransactionID]ledger.Transaction
	balances     map[balanceKey]ledger.Balance
	wishes       map[ledger.WishID]ledger.WishlistItem
	templates    map[ledger.TemplateID]ledger.ScheduledTemplate
	inTx         bool
}

func New() *Store {
	return &Store{
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		balances:     make(map[balanceKey]ledger.Balance),
		wishes:       make(map[ledger.WishID]ledger.WishlistItem),
		templates:    make(map[ledger.TemplateID]ledger.ScheduledTemplate),
	}
}

// lock takes the write lock unless WithTx already holds it.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) CreateTransaction(_ context.Context, tx ledger.Transaction) error {
	defer s.lock()()
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) GetTransaction(_ context.Context, owner ledger.OwnerID, id ledger.TransactionID) (*ledger.Transaction, error) {
	defer s.rlock()()
	tx, ok := s.transactions[id]
	if !ok || tx.Owner != owner {
		return nil, nil
	}
	return &tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx ledger.Transaction) error {
	defer s.lock()()
	existing, ok := s.transactions[tx.ID]
	if !ok || existing.Owner != tx.Owner {
		return ledger.ErrNotFound
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, owner ledger.OwnerID, id ledger.TransactionID) error {
	defer s.lock()()
	existing, ok := s.transactions[id]
	if !ok || existing.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, owner ledger.OwnerID, currency string) ([]ledger.Transaction, error) {
	defer s.rlock()()
	var txs []ledger.Transaction
	for _, tx := range s.transactions {
		if tx.Owner != owner {
			continue
		}
		if currency != "" && tx.Amount.Currency != currency {
			continue
		}
		txs = append(txs, tx)
	}
	// Newest date first, ties broken by creation time.
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	return txs, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) GetBalance(_ context.Context, owner ledger.OwnerID, currency string) (*ledger.Balance, error) {
	defer s.rlock()()
	b, ok := s.balances[balanceKey{Owner: owner, Currency: currency}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) GetBalanceForUpdate(ctx context.Context, owner ledger.OwnerID, currency string) (*ledger.Balance, error) {
	return s.GetBalance(ctx, owner, currency)
}

func (s *Store) SaveBalance(_ context.Context, b ledger.Balance) error {
	defer s.lock()()
	s.balances[balanceKey{Owner: b.Owner, Currency: b.Currency}] = b
	return nil
}

func (s *Store) ListBalances(_ context.Context, owner ledger.OwnerID) ([]ledger.Balance, error) {
	defer s.rlock()()
	var balances []ledger.Balance
	for k, b := range s.balances {
		if k.Owner == owner {
			balances = append(balances, b)
		}
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Currency < balances[j].Currency
	})
	return balances, nil
}

// =============================================================================
// WISHLIST
// =============================================================================

func (s *Store) CreateWish(_ context.Context, w ledger.WishlistItem) error {
	defer s.lock()()
	s.wishes[w.ID] = w
	return nil
}

func (s *Store) GetWish(_ context.Context, owner ledger.OwnerID, id ledger.WishID) (*ledger.WishlistItem, error) {
	defer s.rlock()()
	w, ok := s.wishes[id]
	if !ok || w.Owner != owner {
		return nil, nil
	}
	return &w, nil
}

func (s *Store) UpdateWish(_ context.Context, w ledger.WishlistItem) error {
	defer s.lock()()
	existing, ok := s.wishes[w.ID]
	if !ok || existing.Owner != w.Owner {
		return ledger.ErrNotFound
	}
	s.wishes[w.ID] = w
	return nil
}

func (s *Store) DeleteWish(_ context.Context, owner ledger.OwnerID, id ledger.WishID) error {
	defer s.lock()()
	existing, ok := s.wishes[id]
	if !ok || existing.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.wishes, id)
	return nil
}

func (s *Store) ListWishes(_ context.Context, owner ledger.OwnerID) ([]ledger.WishlistItem, error) {
	defer s.rlock()()
	var wishes []ledger.WishlistItem
	for _, w := range s.wishes {
		if w.Owner == owner {
			wishes = append(wishes, w)
		}
	}
	sort.Slice(wishes, func(i, j int) bool {
		return wishes[i].CreatedAt.After(wishes[j].CreatedAt)
	})
	return wishes, nil
}

// =============================================================================
// SCHEDULED TEMPLATES
// =============================================================================

func (s *Store) CreateTemplate(_ context.Context, t ledger.ScheduledTemplate) error {
	defer s.lock()()
	s.templates[t.ID] = t
	return nil
}

func (s *Store) GetTemplate(_ context.Context, owner ledger.OwnerID, id ledger.TemplateID) (*ledger.ScheduledTemplate, error) {
	defer s.rlock()()
	t, ok := s.templates[id]
	if !ok || t.Owner != owner {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) UpdateTemplate(_ context.Context, t ledger.ScheduledTemplate) error {
	defer s.lock()()
	existing, ok := s.templates[t.ID]
	if !ok || existing.Owner != t.Owner {
		return ledger.ErrNotFound
	}
	s.templates[t.ID] = t
	return nil
}

func (s *Store) DeleteTemplate(_ context.Context, owner ledger.OwnerID, id ledger.TemplateID) error {
	defer s.lock()()
	existing, ok := s.templates[id]
	if !ok || existing.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *Store) ListTemplates(_ context.Context, owner ledger.OwnerID, activeOnly bool) ([]ledger.ScheduledTemplate, error) {
	defer s.rlock()()
	var templates []ledger.ScheduledTemplate
	for _, t := range s.templates {
		if t.Owner != owner {
			continue
		}
		if activeOnly && !t.Active {
			continue
		}
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].CreatedAt.Before(templates[j].CreatedAt)
	})
	return templates, nil
}

// ListTemplateOwners returns every owner with at least one active
// template, sorted for determinism.
func (s *Store) ListTemplateOwners(_ context.Context) ([]ledger.OwnerID, error) {
	defer s.rlock()()
	seen := make(map[ledger.OwnerID]bool)
	for _, t := range s.templates {
		if t.Active {
			seen[t.Owner] = true
		}
	}
	owners := make([]ledger.OwnerID, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx snapshots the maps, runs fn, and restores the snapshot if fn
// fails. The write lock is held for the whole unit; inTx routes the
// nested store calls past the lock.
func (s *Store) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	s.inTx = true
	err := fn(s)
	s.inTx = false
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	transactions map[ledger.TransactionID]ledger.Transaction
	balances     map[balanceKey]ledger.Balance
	wishes       map[ledger.WishID]ledger.WishlistItem
	templates    map[ledger.TemplateID]ledger.ScheduledTemplate
}

func (s *Store) snapshot() snapshot {
	txs := make(map[ledger.TransactionID]ledger.Transaction, len(s.transactions))
	for k, v := range s.transactions {
		txs[k] = v
	}
	bals := make(map[balanceKey]ledger.Balance, len(s.balances))
	for k, v := range s.balances {
		bals[k] = v
	}
	wishes := make(map[ledger.WishID]ledger.WishlistItem, len(s.wishes))
	for k, v := range s.wishes {
		wishes[k] = v
	}
	templates := make(map[ledger.TemplateID]ledger.ScheduledTemplate, len(s.templates))
	for k, v := range s.templates {
		templates[k] = v
	}
	return snapshot{transactions: txs, balances: bals, wishes: wishes, templates: templates}
}

func (s *Store) restore(snap snapshot) {
	s.transactions = snap.transactions
	s.balances = snap.balances
	s.wishes = snap.wishes
	s.templates = snap.templates
}
