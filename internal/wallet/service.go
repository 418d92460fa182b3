package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/money"
	"github.com/kobo-pay/kobo_pay/internal/notification"
)

// Service is the balance-mutation engine: every operation parses the raw
// amount, locks the involved wallet rows, validates against freshly loaded
// balances, mutates, appends a ledger entry and commits as one unit. On any
// failure the unit of work rolls back before the locks are released.
type Service struct {
	store    ledger.Store
	cache    *BalanceCache
	notifier notification.Notifier
}

// NewService builds a wallet service. Cache and notifier are optional.
func NewService(store ledger.Store, cache *BalanceCache, notifier notification.Notifier) *Service {
	return &Service{store: store, cache: cache, notifier: notifier}
}

// Create provisions a zero-balance wallet for the user. Idempotent.
func (s *Service) Create(ctx context.Context, userID int64) (ledger.Wallet, error) {
	return s.store.CreateWallet(ctx, userID)
}

// Balance returns the user's current balance, zero when no wallet exists.
func (s *Service) Balance(ctx context.Context, userID int64) (money.Amount, error) {
	if s.cache != nil {
		if amount, ok := s.cache.Get(ctx, userID); ok {
			return amount, nil
		}
	}
	w, err := s.store.WalletByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return money.Zero(), nil
		}
		return money.Amount{}, fmt.Errorf("load wallet: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, w.Balance)
	}
	return w.Balance, nil
}

// Fund credits the user's wallet from the external funding source.
func (s *Service) Fund(ctx context.Context, userID int64, rawAmount any) error {
	amount, err := parsePositive(rawAmount)
	if err != nil {
		return err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return err
	}

	w.Balance = w.Balance.Add(amount)
	if err := tx.SaveWallets(ctx, w); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}

	if _, err := tx.AppendTransaction(ctx, ledger.Transaction{
		Kind:        ledger.KindFund,
		Amount:      amount,
		ToUserID:    &userID,
		Description: "Funded from mock source",
		WalletID:    w.ID,
	}); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit fund: %w", err)
	}

	s.invalidate(ctx, userID)
	return nil
}

// Withdraw debits the user's wallet, removing funds from the system.
func (s *Service) Withdraw(ctx context.Context, userID int64, rawAmount any) error {
	amount, err := parsePositive(rawAmount)
	if err != nil {
		return err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return err
	}
	if w.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	w.Balance = w.Balance.Sub(amount)
	if err := tx.SaveWallets(ctx, w); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}

	if _, err := tx.AppendTransaction(ctx, ledger.Transaction{
		Kind:        ledger.KindWithdraw,
		Amount:      amount,
		FromUserID:  &userID,
		Description: "Withdrawal",
		WalletID:    w.ID,
	}); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit withdraw: %w", err)
	}

	s.invalidate(ctx, userID)
	return nil
}

// Transfer moves funds between two users' wallets atomically and returns the
// recorded ledger entry. Wallet rows are locked in ascending user id order
// regardless of transfer direction.
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID int64, rawAmount any) (ledger.Transaction, error) {
	if fromUserID == toUserID {
		return ledger.Transaction{}, ErrSelfTransfer
	}

	amount, err := parsePositive(rawAmount)
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := fromUserID, toUserID
	if second < first {
		first, second = second, first
	}

	locked := make(map[int64]ledger.Wallet, 2)
	for _, userID := range []int64{first, second} {
		w, err := tx.LockWallet(ctx, userID)
		if err != nil {
			if errors.Is(err, ledger.ErrWalletNotFound) {
				return ledger.Transaction{}, ErrCounterpartyNotFound
			}
			return ledger.Transaction{}, err
		}
		locked[userID] = w
	}

	source, destination := locked[fromUserID], locked[toUserID]
	if source.Balance.LessThan(amount) {
		return ledger.Transaction{}, ErrInsufficientBalance
	}

	// Each side is rounded independently so balances never drift out of the
	// two-decimal domain.
	source.Balance = source.Balance.Sub(amount)
	destination.Balance = destination.Balance.Add(amount)

	if err := tx.SaveWallets(ctx, source, destination); err != nil {
		return ledger.Transaction{}, fmt.Errorf("save wallets: %w", err)
	}

	entry, err := tx.AppendTransaction(ctx, ledger.Transaction{
		Kind:        ledger.KindTransfer,
		Amount:      amount,
		FromUserID:  &fromUserID,
		ToUserID:    &toUserID,
		Description: fmt.Sprintf("Transfer to user %d", toUserID),
		WalletID:    source.ID,
	})
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("append entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ledger.Transaction{}, fmt.Errorf("commit transfer: %w", err)
	}

	s.invalidate(ctx, fromUserID)
	s.invalidate(ctx, toUserID)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: fmt.Sprintf("%d", toUserID),
			Body:        fmt.Sprintf("You received %s from user %d", amount, fromUserID),
		})
	}

	return entry, nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func parsePositive(raw any) (money.Amount, error) {
	amount, err := money.Parse(raw)
	if err != nil {
		return money.Amount{}, err
	}
	if !amount.IsPositive() {
		return money.Amount{}, money.ErrNotPositive
	}
	return amount, nil
}
