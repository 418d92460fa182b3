package history

import (
	"context"
	"fmt"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
)

// Service is the read-only query surface over the transaction log. It takes
// no locks and may observe a slightly stale snapshot while mutations are in
// flight.
type Service struct {
	store ledger.Store
}

// NewService builds a history service.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// FindByUser returns the entries where the user is source or destination,
// most recent first.
func (s *Service) FindByUser(ctx context.Context, userID int64) ([]ledger.Transaction, error) {
	entries, err := s.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return entries, nil
}
