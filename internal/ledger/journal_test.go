package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kobo-pay/kobo_pay/internal/money"
)

func TestJournalReplayRestoresState(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	journal, err := OpenJournal(dir)
	require.NoError(t, err)

	store, err := NewMemoryWithJournal(journal)
	require.NoError(t, err)

	w, err := store.CreateWallet(ctx, 1)
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	locked, err := tx.LockWallet(ctx, 1)
	require.NoError(t, err)
	locked.Balance = money.MustParse("75.25")
	require.NoError(t, tx.SaveWallets(ctx, locked))
	uid := int64(1)
	_, err = tx.AppendTransaction(ctx, Transaction{
		Kind:        KindFund,
		Amount:      money.MustParse("75.25"),
		ToUserID:    &uid,
		Description: "Funded from mock source",
		WalletID:    w.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, store.Close())

	reopened, err := OpenJournal(dir)
	require.NoError(t, err)
	restored, err := NewMemoryWithJournal(reopened)
	require.NoError(t, err)
	defer restored.Close()

	got, err := restored.WalletByUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, w.ID, got.ID)
	require.Equal(t, "75.25", got.Balance.String())

	entries, err := restored.TransactionsByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, KindFund, entries[0].Kind)
	require.Equal(t, "75.25", entries[0].Amount.String())
}

// A transfer touches two wallet rows plus a ledger entry. All of it must land
// in the journal as one record, so a crash between disk writes can never
// leave a debited source without the matching credit on replay.
func TestJournalCommitIsSingleRecord(t *testing.T) {
	dir := t.TempDir()

	journal, err := OpenJournal(dir)
	require.NoError(t, err)
	defer journal.Close()

	from, to := int64(1), int64(2)
	wallets := []Wallet{
		{ID: "w-1", UserID: from, Balance: money.MustParse("60.00")},
		{ID: "w-2", UserID: to, Balance: money.MustParse("40.00")},
	}
	entries := []Transaction{{
		ID:         "t-1",
		Kind:       KindTransfer,
		Amount:     money.MustParse("40.00"),
		FromUserID: &from,
		ToUserID:   &to,
		WalletID:   "w-1",
	}}
	require.NoError(t, journal.LogCommit(wallets, entries))

	records := 0
	for range journal.wal.Iterator() {
		records++
	}
	require.Equal(t, 1, records, "one commit must be one journal record")

	restored, log, err := journal.Replay()
	require.NoError(t, err)
	require.Equal(t, "60.00", restored[from].Balance.String())
	require.Equal(t, "40.00", restored[to].Balance.String())
	require.Len(t, log, 1)
	require.Equal(t, KindTransfer, log[0].Kind)
}

func TestJournalReplayRestoresBothSidesOfTransfer(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	journal, err := OpenJournal(dir)
	require.NoError(t, err)
	store, err := NewMemoryWithJournal(journal)
	require.NoError(t, err)

	_, err = store.CreateWallet(ctx, 1)
	require.NoError(t, err)
	_, err = store.CreateWallet(ctx, 2)
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	source, err := tx.LockWallet(ctx, 1)
	require.NoError(t, err)
	destination, err := tx.LockWallet(ctx, 2)
	require.NoError(t, err)
	source.Balance = money.MustParse("70.00")
	destination.Balance = money.MustParse("30.00")
	require.NoError(t, tx.SaveWallets(ctx, source, destination))
	from, to := int64(1), int64(2)
	_, err = tx.AppendTransaction(ctx, Transaction{
		Kind:       KindTransfer,
		Amount:     money.MustParse("30.00"),
		FromUserID: &from,
		ToUserID:   &to,
		WalletID:   source.ID,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, store.Close())

	reopened, err := OpenJournal(dir)
	require.NoError(t, err)
	restored, err := NewMemoryWithJournal(reopened)
	require.NoError(t, err)
	defer restored.Close()

	got1, err := restored.WalletByUser(ctx, 1)
	require.NoError(t, err)
	got2, err := restored.WalletByUser(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "70.00", got1.Balance.String())
	require.Equal(t, "30.00", got2.Balance.String())
	require.Equal(t, "100.00", got1.Balance.Add(got2.Balance).String())

	entries, err := restored.TransactionsByUser(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, KindTransfer, entries[0].Kind)
}

func TestJournalRollbackLeavesNoRecords(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	journal, err := OpenJournal(dir)
	require.NoError(t, err)
	store, err := NewMemoryWithJournal(journal)
	require.NoError(t, err)

	_, err = store.CreateWallet(ctx, 1)
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	locked, err := tx.LockWallet(ctx, 1)
	require.NoError(t, err)
	locked.Balance = money.MustParse("10.00")
	require.NoError(t, tx.SaveWallets(ctx, locked))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, store.Close())

	reopened, err := OpenJournal(dir)
	require.NoError(t, err)
	restored, err := NewMemoryWithJournal(reopened)
	require.NoError(t, err)
	defer restored.Close()

	got, err := restored.WalletByUser(ctx, 1)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(money.Zero()), "rolled back balance must not be journaled")
}
