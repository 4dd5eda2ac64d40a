package wallet

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrWalletNotLocked is returned when a balance write targets a wallet the
// unit of work has not locked.
var ErrWalletNotLocked = errors.New("wallet must be locked before its balance is written")

// Repository persists wallets and their transaction history. Reads outside
// WithTx are unlocked and see the latest committed state.
type Repository interface {
	// WithTx runs fn inside one atomic unit of work. Locks taken through the
	// Tx are held until fn returns; a non-nil error rolls everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetByID(ctx context.Context, id string) (Wallet, error)
	GetByUser(ctx context.Context, userID string) (Wallet, error)
	GetByNumber(ctx context.Context, number string) (Wallet, error)
	TransactionByReference(ctx context.Context, reference string) (Transaction, error)
	TransactionsByWallet(ctx context.Context, walletID string) ([]Transaction, error)
	InsertTransaction(ctx context.Context, t Transaction) error
}

// Tx is the unit-of-work view of the repository.
type Tx interface {
	// LockWallet takes an exclusive lock on the wallet row and returns its
	// current state. Prefer LockWallets, which fixes the acquisition order.
	LockWallet(ctx context.Context, id string) (Wallet, error)
	WalletByUser(ctx context.Context, userID string) (Wallet, error)
	WalletByNumber(ctx context.Context, number string) (Wallet, error)
	WalletNumberExists(ctx context.Context, number string) (bool, error)
	CreateWallet(ctx context.Context, w Wallet) error
	// UpdateBalance overwrites the balance of a wallet locked by this Tx.
	UpdateBalance(ctx context.Context, id string, balance int64) error
	InsertTransaction(ctx context.Context, t Transaction) error
	// TransitionTransaction moves reference from one status to another and
	// reports whether this call performed the move.
	TransitionTransaction(ctx context.Context, reference string, from, to TransactionStatus) (bool, error)
}

// LockWallets locks every distinct id in ascending order. All multi-wallet
// mutations must lock through here so that two units of work touching the
// same wallets always queue in the same order.
func LockWallets(ctx context.Context, tx Tx, ids ...string) (map[string]Wallet, error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	locked := make(map[string]Wallet, len(ordered))
	for _, id := range ordered {
		w, err := tx.LockWallet(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lock wallet %s: %w", id, err)
		}
		locked[id] = w
	}
	return locked, nil
}
