package ledger

import "github.com/kobo-pay/kobo_pay/internal/money"

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory store.
func SeedBalance(s Store, userID int64, amount money.Amount) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if row, exists := mem.wallets[userID]; exists {
			row.wallet.Balance = amount
		}
	}
}
