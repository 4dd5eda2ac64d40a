package wallet

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
)

const (
	walletNumberMin = 1_000_000_000
	walletNumberMax = 9_999_999_999

	// DefaultNumberAttempts bounds wallet-number generation retries.
	DefaultNumberAttempts = 5
)

// NumberGenerator yields candidate wallet numbers.
type NumberGenerator func() string

// RandomNumber draws a uniformly random 10-digit wallet number.
func RandomNumber() string {
	return strconv.FormatInt(walletNumberMin+rand.Int64N(walletNumberMax-walletNumberMin+1), 10)
}

// ValidWalletNumber reports whether s is a 10-digit wallet number.
func ValidWalletNumber(s string) bool {
	if len(s) != 10 || s[0] == '0' {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// allocateNumber finds an unused wallet number within attempts tries.
// onCollision is invoked for every taken candidate.
func allocateNumber(ctx context.Context, tx Tx, gen NumberGenerator, attempts int, onCollision func()) (string, error) {
	if attempts < 1 {
		attempts = DefaultNumberAttempts
	}
	for i := 0; i < attempts; i++ {
		candidate := gen()
		taken, err := tx.WalletNumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check wallet number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		if onCollision != nil {
			onCollision()
		}
	}
	return "", ErrWalletNumberExhausted
}
