package wallet

import (
	"github.com/shopspring/decimal"
)

// minorUnitsPerMajor is the fixed major-to-minor factor (naira to kobo).
const minorUnitsPerMajor = 100

var hundred = decimal.NewFromInt(minorUnitsPerMajor)

// ToMinorUnits converts a client-facing major-unit amount into minor units.
// Amounts must be positive and carry no more than two decimal places.
func ToMinorUnits(major decimal.Decimal) (int64, error) {
	minor := major.Mul(hundred)
	if !minor.IsInteger() || minor.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if !minor.LessThanOrEqual(decimal.NewFromInt(maxAmount)) {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

// FromMinorUnits renders minor units as a major-unit decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// maxAmount bounds a single movement so that credits cannot overflow int64.
const maxAmount int64 = 1 << 50

// ValidateAmount checks an amount already expressed in minor units.
func ValidateAmount(minor int64) error {
	if minor <= 0 || minor > maxAmount {
		return ErrInvalidAmount
	}
	return nil
}

func addBalance(balance, amount int64) (int64, error) {
	if err := ValidateAmount(amount); err != nil {
		return 0, err
	}
	if balance > (1<<62)-amount {
		return 0, ErrInvalidAmount
	}
	return balance + amount, nil
}

func subtractBalance(balance, amount int64) (int64, error) {
	if err := ValidateAmount(amount); err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, ErrInsufficientFunds
	}
	return balance - amount, nil
}
