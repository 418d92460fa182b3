package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/kobo-pay/kobo_pay/internal/money"
)

var (
	// ErrWalletNotFound occurs when the referenced user has no wallet row.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletNotLocked indicates a write was attempted on a wallet the
	// current unit of work never locked.
	ErrWalletNotLocked = errors.New("wallet not locked in this transaction")

	// ErrTxDone indicates the unit of work already committed or rolled back.
	ErrTxDone = errors.New("transaction already finished")
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindFund     Kind = "fund"
	KindWithdraw Kind = "withdraw"
	KindTransfer Kind = "transfer"
)

// Wallet is the per-user balance row. Exactly one wallet exists per user and
// its balance is never negative at any committed state.
type Wallet struct {
	ID        string       `json:"id"`
	UserID    int64        `json:"user_id"`
	Balance   money.Amount `json:"balance"`
	CreatedAt time.Time    `json:"created_at"`
}

// Transaction is an immutable ledger entry recording one balance-changing
// event. FromUserID is set for withdraw/transfer, ToUserID for fund/transfer.
// WalletID references the wallet whose balance changed, or the source wallet
// for transfers.
type Transaction struct {
	ID          string       `json:"id"`
	Kind        Kind         `json:"kind"`
	Amount      money.Amount `json:"amount"`
	FromUserID  *int64       `json:"from_user_id,omitempty"`
	ToUserID    *int64       `json:"to_user_id,omitempty"`
	Description string       `json:"description"`
	WalletID    string       `json:"wallet_id"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Store defines the contract implemented by ledger backends (Postgres or the
// in-memory store). Reads run lock-free; mutations go through a Tx.
type Store interface {
	// Begin starts a unit of work whose writes become visible atomically on
	// Commit and are discarded on Rollback.
	Begin(ctx context.Context) (Tx, error)

	// CreateWallet provisions a zero-balance wallet for the user. Calling it
	// again for an existing user returns the existing wallet unchanged.
	CreateWallet(ctx context.Context, userID int64) (Wallet, error)

	// WalletByUser fetches the wallet row without locking it.
	WalletByUser(ctx context.Context, userID int64) (Wallet, error)

	// TransactionsByUser returns entries where the user is source or
	// destination, most recent first.
	TransactionsByUser(ctx context.Context, userID int64) ([]Transaction, error)
}

// Tx is a single atomic unit of work. Callers locking two wallets must lock
// them in ascending user id order; this rule is what prevents deadlock
// between concurrent transfers targeting the same pair in opposite
// directions.
type Tx interface {
	// LockWallet returns the wallet row under an exclusive lock held until
	// Commit or Rollback. Other lockers of the same row block.
	LockWallet(ctx context.Context, userID int64) (Wallet, error)

	// SaveWallets stages updated balances for wallets locked in this Tx.
	SaveWallets(ctx context.Context, wallets ...Wallet) error

	// AppendTransaction stages an immutable ledger entry, assigning its id
	// and timestamp when unset.
	AppendTransaction(ctx context.Context, entry Transaction) (Transaction, error)

	Commit(ctx context.Context) error

	// Rollback discards staged writes. Calling it after Commit is a no-op so
	// it can be deferred unconditionally.
	Rollback(ctx context.Context) error
}
