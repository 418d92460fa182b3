package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kobo-pay/kobo_pay/internal/money"
)

// PostgresStore persists wallets and ledger entries in PostgreSQL using
// row-level pessimistic locks (SELECT ... FOR UPDATE) for mutations.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Begin opens a database transaction.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &postgresTx{tx: tx}, nil
}

// CreateWallet inserts a zero-balance wallet for the user if none exists and
// returns the wallet row either way.
func (s *PostgresStore) CreateWallet(ctx context.Context, userID int64) (Wallet, error) {
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (id, user_id, balance, created_at)
        VALUES ($1, $2, 0, $3) ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(), userID, time.Now().UTC())
	if err != nil {
		return Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return s.WalletByUser(ctx, userID)
}

// WalletByUser fetches the wallet row without locking.
func (s *PostgresStore) WalletByUser(ctx context.Context, userID int64) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT id, user_id, balance::text, created_at
        FROM wallets WHERE user_id = $1`, userID)
	return scanWallet(row)
}

// TransactionsByUser returns the user's ledger entries, most recent first.
func (s *PostgresStore) TransactionsByUser(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT id, kind, amount::text, from_user_id, to_user_id, description, wallet_id, created_at
        FROM transactions WHERE from_user_id = $1 OR to_user_id = $1
        ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		var (
			entry     Transaction
			id        uuid.UUID
			walletID  uuid.UUID
			amount    string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &entry.Kind, &amount, &entry.FromUserID, &entry.ToUserID, &entry.Description, &walletID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		parsed, err := money.Parse(amount)
		if err != nil {
			return nil, fmt.Errorf("decode amount: %w", err)
		}
		entry.ID = id.String()
		entry.Amount = parsed
		entry.WalletID = walletID.String()
		entry.CreatedAt = createdAt.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) LockWallet(ctx context.Context, userID int64) (Wallet, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, user_id, balance::text, created_at
        FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return scanWallet(row)
}

func (t *postgresTx) SaveWallets(ctx context.Context, wallets ...Wallet) error {
	for _, w := range wallets {
		walletID, err := uuid.Parse(w.ID)
		if err != nil {
			return fmt.Errorf("parse wallet id: %w", err)
		}
		cmd, err := t.tx.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE id = $2`,
			w.Balance.String(), walletID)
		if err != nil {
			return fmt.Errorf("save wallet %s: %w", w.ID, err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrWalletNotFound
		}
	}
	return nil
}

func (t *postgresTx) AppendTransaction(ctx context.Context, entry Transaction) (Transaction, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO transactions (id, kind, amount, from_user_id, to_user_id, description, wallet_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.Kind, entry.Amount.String(), entry.FromUserID, entry.ToUserID, entry.Description, entry.WalletID, entry.CreatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return entry, nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		id        uuid.UUID
		balance   string
		createdAt time.Time
	)
	if err := row.Scan(&id, &w.UserID, &balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	parsed, err := money.Parse(balance)
	if err != nil {
		return Wallet{}, fmt.Errorf("decode balance: %w", err)
	}
	w.ID = id.String()
	w.Balance = parsed
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
