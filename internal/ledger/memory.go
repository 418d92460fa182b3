package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// walletRow pairs a wallet with its mutual-exclusion handle. row.mu serializes
// units of work touching the wallet; the store mutex guards the data itself so
// lock-free readers never race with a committing writer.
type walletRow struct {
	mu     sync.Mutex
	wallet Wallet
}

// MemoryStore is an in-process Store implementation with per-wallet locks and
// an optional write-ahead journal for durability. Useful standalone in
// development mode and for unit tests.
type MemoryStore struct {
	mu      sync.RWMutex
	wallets map[int64]*walletRow
	log     []Transaction
	journal *Journal
}

// NewMemory creates an empty in-memory store without durability.
func NewMemory() *MemoryStore {
	return &MemoryStore{wallets: make(map[int64]*walletRow)}
}

// NewMemoryWithJournal creates an in-memory store whose committed state is
// recorded in the journal and replayed from it on startup.
func NewMemoryWithJournal(journal *Journal) (*MemoryStore, error) {
	wallets, log, err := journal.Replay()
	if err != nil {
		return nil, fmt.Errorf("replay journal: %w", err)
	}
	store := &MemoryStore{wallets: make(map[int64]*walletRow, len(wallets)), log: log, journal: journal}
	for userID, w := range wallets {
		store.wallets[userID] = &walletRow{wallet: w}
	}
	return store, nil
}

// Begin starts an in-memory unit of work.
func (s *MemoryStore) Begin(_ context.Context) (Tx, error) {
	return &memoryTx{store: s, staged: make(map[int64]Wallet)}, nil
}

// CreateWallet provisions a zero-balance wallet, returning the existing row
// unchanged when the user already has one.
func (s *MemoryStore) CreateWallet(_ context.Context, userID int64) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, exists := s.wallets[userID]; exists {
		return row.wallet, nil
	}

	w := Wallet{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if s.journal != nil {
		if err := s.journal.LogCommit([]Wallet{w}, nil); err != nil {
			return Wallet{}, fmt.Errorf("journal wallet: %w", err)
		}
	}
	s.wallets[userID] = &walletRow{wallet: w}
	return w, nil
}

// WalletByUser returns a copy of the wallet row without locking it.
func (s *MemoryStore) WalletByUser(_ context.Context, userID int64) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.wallets[userID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return row.wallet, nil
}

// TransactionsByUser filters the append-only log, most recent first. Append
// order is chronological, so the log is walked backwards.
func (s *MemoryStore) TransactionsByUser(_ context.Context, userID int64) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Transaction
	for i := len(s.log) - 1; i >= 0; i-- {
		entry := s.log[i]
		if (entry.FromUserID != nil && *entry.FromUserID == userID) ||
			(entry.ToUserID != nil && *entry.ToUserID == userID) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Close releases the journal, if any.
func (s *MemoryStore) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

type memoryTx struct {
	store    *MemoryStore
	locked   []*walletRow
	held     map[int64]*walletRow
	staged   map[int64]Wallet
	appended []Transaction
	done     bool
}

func (t *memoryTx) LockWallet(_ context.Context, userID int64) (Wallet, error) {
	if t.done {
		return Wallet{}, ErrTxDone
	}
	if t.held == nil {
		t.held = make(map[int64]*walletRow)
	}
	if row, ok := t.held[userID]; ok {
		if staged, ok := t.staged[userID]; ok {
			return staged, nil
		}
		return t.snapshot(row), nil
	}

	t.store.mu.RLock()
	row, ok := t.store.wallets[userID]
	t.store.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}

	// Blocks until any competing unit of work releases the row.
	row.mu.Lock()
	t.locked = append(t.locked, row)
	t.held[userID] = row
	return t.snapshot(row), nil
}

func (t *memoryTx) snapshot(row *walletRow) Wallet {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return row.wallet
}

func (t *memoryTx) SaveWallets(_ context.Context, wallets ...Wallet) error {
	if t.done {
		return ErrTxDone
	}
	for _, w := range wallets {
		if _, ok := t.held[w.UserID]; !ok {
			return fmt.Errorf("%w: user %d", ErrWalletNotLocked, w.UserID)
		}
		t.staged[w.UserID] = w
	}
	return nil
}

func (t *memoryTx) AppendTransaction(_ context.Context, entry Transaction) (Transaction, error) {
	if t.done {
		return Transaction{}, ErrTxDone
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	t.appended = append(t.appended, entry)
	return entry, nil
}

// Commit makes staged writes visible as one unit. The journal record is
// flushed before in-memory state changes, so an acknowledged commit survives
// restart, and a failed or interrupted journal write leaves no trace at all.
func (t *memoryTx) Commit(_ context.Context) error {
	if t.done {
		return ErrTxDone
	}
	defer t.release()

	if t.store.journal != nil {
		updated := make([]Wallet, 0, len(t.staged))
		for _, w := range t.staged {
			updated = append(updated, w)
		}
		if err := t.store.journal.LogCommit(updated, t.appended); err != nil {
			return fmt.Errorf("journal commit: %w", err)
		}
	}

	t.store.mu.Lock()
	for userID, w := range t.staged {
		t.store.wallets[userID].wallet = w
	}
	t.store.log = append(t.store.log, t.appended...)
	t.store.mu.Unlock()

	return nil
}

func (t *memoryTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *memoryTx) release() {
	t.done = true
	for _, row := range t.locked {
		row.mu.Unlock()
	}
	t.locked = nil
}
