package wallet

import "context"

// Credit adds amount to a wallet locked by tx and persists the new balance.
func Credit(ctx context.Context, tx Tx, w Wallet, amount int64) (Wallet, error) {
	next, err := addBalance(w.Balance, amount)
	if err != nil {
		return Wallet{}, err
	}
	if err := tx.UpdateBalance(ctx, w.ID, next); err != nil {
		return Wallet{}, err
	}
	w.Balance = next
	return w, nil
}

// Debit removes amount from a wallet locked by tx. It fails with
// ErrInsufficientFunds rather than persist a negative balance.
func Debit(ctx context.Context, tx Tx, w Wallet, amount int64) (Wallet, error) {
	next, err := subtractBalance(w.Balance, amount)
	if err != nil {
		return Wallet{}, err
	}
	if err := tx.UpdateBalance(ctx, w.ID, next); err != nil {
		return Wallet{}, err
	}
	w.Balance = next
	return w, nil
}
