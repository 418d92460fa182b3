package wallet

import "errors"

var (
	// ErrSelfTransfer occurs when source and destination users are identical.
	ErrSelfTransfer = errors.New("cannot transfer to self")

	// ErrInsufficientBalance occurs when a withdrawal or transfer exceeds the
	// available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCounterpartyNotFound occurs when either side of a transfer has no
	// wallet.
	ErrCounterpartyNotFound = errors.New("counterparty wallet not found")
)
