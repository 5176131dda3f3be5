package ports

import "context"

// WalletUpdate represents a single currency change for a bot owner. A
// negative Amount is a debit (buy-in collection); a positive Amount is a
// credit (prize payout).
type WalletUpdate struct {
	OwnerID  string
	Amount   int64
	Metadata map[string]interface{}
}

// PrizePoolPort manages tournament buy-ins and payouts against whatever
// ledger backs bot currency.
type PrizePoolPort interface {
	// GetBalance retrieves the current balance for a bot owner.
	GetBalance(ctx context.Context, ownerID string) (int64, error)

	// UpdateBalances applies multiple wallet changes atomically. Used to
	// collect a buy-in when a bot joins a tournament and to settle prize
	// payouts at tournament end.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
