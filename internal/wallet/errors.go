package wallet

import (
	"errors"

	"github.com/congo-pay/congo_wallet/internal/apperr"
)

var (
	// ErrWalletNotFound is returned when no wallet matches the lookup.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransactionNotFound is returned when no transaction has the reference.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInsufficientFunds occurs when a debit exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNegativeBalance guards every balance write.
	ErrNegativeBalance = errors.New("balance cannot be negative")

	// ErrDuplicateReference indicates the reference is already recorded.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrDuplicateWallet indicates a wallet id or owner already exists.
	ErrDuplicateWallet = errors.New("wallet already exists")

	// ErrWalletNumberTaken means the chosen wallet number was claimed by a
	// concurrent provisioning between the availability check and the insert.
	ErrWalletNumberTaken = errors.New("wallet number already taken")

	// ErrWalletNumberExhausted means no unique wallet number was found within
	// the configured number of attempts.
	ErrWalletNumberExhausted = errors.New("could not generate unique wallet number")

	// ErrInvalidAmount rejects non-positive or fractional minor-unit amounts.
	ErrInvalidAmount = errors.New("amount must be a positive value with at most two decimal places")

	// ErrTxClosed is returned when a unit of work is used after commit or rollback.
	ErrTxClosed = errors.New("wallet transaction already closed")
)

// AsAppError maps repository sentinels onto the application error taxonomy.
// Errors that already carry a kind pass through unchanged.
func AsAppError(err error) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ErrWalletNotFound):
		return apperr.Wrap(apperr.KindNotFound, "wallet not found", err)
	case errors.Is(err, ErrTransactionNotFound):
		return apperr.Wrap(apperr.KindNotFound, "transaction not found", err)
	case errors.Is(err, ErrInsufficientFunds):
		return apperr.Wrap(apperr.KindBadRequest, "insufficient funds", err)
	case errors.Is(err, ErrInvalidAmount):
		return apperr.Wrap(apperr.KindBadRequest, ErrInvalidAmount.Error(), err)
	case errors.Is(err, ErrWalletNumberExhausted), errors.Is(err, ErrWalletNumberTaken):
		return apperr.Internal(err, "wallet provisioning failed")
	default:
		return apperr.Internal(err, "internal server error")
	}
}
