package wallet

import "time"

// Wallet is the single stored-value account owned by a user. Balance is held
// in minor currency units.
type Wallet struct {
	ID           string
	UserID       string
	WalletNumber string
	Balance      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransactionType distinguishes the two ways money enters or moves.
type TransactionType string

const (
	TypeDeposit  TransactionType = "deposit"
	TypeTransfer TransactionType = "transfer"
)

// TransactionStatus is monotonic: pending moves to success or failed once.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Transaction is one entry in the wallet history, keyed by a globally unique
// reference. Transfers are owned by the sender's wallet and record both
// wallet numbers.
type Transaction struct {
	ID                    string
	WalletID              string
	Reference             string
	Type                  TransactionType
	Status                TransactionStatus
	Amount                int64
	SenderWalletNumber    string
	RecipientWalletNumber string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Balance is the read model returned by balance queries.
type Balance struct {
	WalletNumber string
	Amount       int64
	AsOf         time.Time
}

// HistoryEntry is the narrow projection returned by history queries.
type HistoryEntry struct {
	Amount int64
	Type   TransactionType
	Status TransactionStatus
}
