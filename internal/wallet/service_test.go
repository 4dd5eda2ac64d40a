package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
)

func provision(t *testing.T, svc *Service, userID string) Wallet {
	t.Helper()
	var w Wallet
	err := svc.Repository().WithTx(context.Background(), func(tx Tx) error {
		var err error
		w, err = svc.Provision(context.Background(), tx, userID)
		return err
	})
	if err != nil {
		t.Fatalf("provision wallet: %v", err)
	}
	return w
}

func sequence(numbers ...string) NumberGenerator {
	i := 0
	return func() string {
		n := numbers[i%len(numbers)]
		i++
		return n
	}
}

func TestServiceProvisionAndBalance(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ctx := context.Background()
	ownerID := uuid.NewString()
	w := provision(t, svc, ownerID)

	if !ValidWalletNumber(w.WalletNumber) {
		t.Fatalf("expected 10 digit wallet number, got %q", w.WalletNumber)
	}
	if w.Balance != 0 {
		t.Fatalf("expected zero balance, got %d", w.Balance)
	}

	if err := repo.SeedBalance(w.ID, 2_500); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	balance, err := svc.Balance(ctx, access.SessionPrincipal(ownerID, "owner@example.com"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 2_500 || balance.WalletNumber != w.WalletNumber {
		t.Fatalf("unexpected balance %+v", balance)
	}
}

func TestProvisionRetriesOnCollision(t *testing.T) {
	repo := NewMemoryRepository()
	first := NewService(repo, WithNumberGenerator(sequence("1234567890")))
	provision(t, first, uuid.NewString())

	svc := NewService(repo, WithNumberGenerator(sequence("1234567890", "1234567890", "2234567890")))
	w := provision(t, svc, uuid.NewString())
	if w.WalletNumber != "2234567890" {
		t.Fatalf("expected third candidate, got %s", w.WalletNumber)
	}
}

func TestProvisionExhaustionIsInternalAndRollsBack(t *testing.T) {
	repo := NewMemoryRepository()
	provision(t, NewService(repo, WithNumberGenerator(sequence("1234567890"))), uuid.NewString())

	svc := NewService(repo, WithNumberGenerator(sequence("1234567890")), WithNumberAttempts(3))
	ownerID := uuid.NewString()
	err := repo.WithTx(context.Background(), func(tx Tx) error {
		_, err := svc.Provision(context.Background(), tx, ownerID)
		return err
	})
	if !apperr.Is(err, apperr.KindInternal) || !errors.Is(err, ErrWalletNumberExhausted) {
		t.Fatalf("expected internal exhaustion error, got %v", err)
	}
	if _, err := repo.GetByUser(context.Background(), ownerID); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected no wallet after failed provisioning, got %v", err)
	}
}

// staleTx reports every wallet number as free, as a concurrent registration
// would see it before the competing insert commits.
type staleTx struct{ Tx }

func (staleTx) WalletNumberExists(context.Context, string) (bool, error) { return false, nil }

func TestProvisionNumberRaceIsInternal(t *testing.T) {
	repo := NewMemoryRepository()
	provision(t, NewService(repo, WithNumberGenerator(sequence("1234567890"))), uuid.NewString())

	svc := NewService(repo, WithNumberGenerator(sequence("1234567890")))
	ownerID := uuid.NewString()
	err := repo.WithTx(context.Background(), func(tx Tx) error {
		_, err := svc.Provision(context.Background(), staleTx{tx}, ownerID)
		return err
	})
	if !apperr.Is(err, apperr.KindInternal) || !errors.Is(err, ErrWalletNumberTaken) {
		t.Fatalf("expected internal wallet number error, got %v", err)
	}
	if _, err := repo.GetByUser(context.Background(), ownerID); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected no wallet after failed provisioning, got %v", err)
	}
}

func TestProvisionTwiceForSameUserConflicts(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ownerID := uuid.NewString()
	provision(t, svc, ownerID)

	err := repo.WithTx(context.Background(), func(tx Tx) error {
		_, err := svc.Provision(context.Background(), tx, ownerID)
		return err
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestBalanceRequiresReadPermission(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ownerID := uuid.NewString()
	provision(t, svc, ownerID)

	_, err := svc.Balance(context.Background(), access.NewPrincipal(ownerID, access.SourceAPIKey, access.PermTransfer))
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = svc.Balance(context.Background(), access.Principal{})
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestBalanceWithoutWalletIsNotFound(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.Balance(context.Background(), access.SessionPrincipal(uuid.NewString(), ""))
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransactionsNewestFirstAndNarrow(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ownerID := uuid.NewString()
	w := provision(t, svc, ownerID)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i, status := range []TransactionStatus{StatusSuccess, StatusPending} {
		err := repo.InsertTransaction(ctx, Transaction{
			ID:        uuid.NewString(),
			WalletID:  w.ID,
			Reference: "TRX-" + uuid.NewString(),
			Type:      TypeDeposit,
			Status:    status,
			Amount:    int64(i+1) * 100,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert transaction: %v", err)
		}
	}

	entries, err := svc.Transactions(ctx, access.SessionPrincipal(ownerID, ""))
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	want := []HistoryEntry{
		{Amount: 200, Type: TypeDeposit, Status: StatusPending},
		{Amount: 100, Type: TypeDeposit, Status: StatusSuccess},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], entries[i])
		}
	}
}

func TestDepositStatusOnlyReportsDeposits(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	deposit := Transaction{ID: uuid.NewString(), Reference: "TRX-1", Type: TypeDeposit, Status: StatusPending, Amount: 500}
	transfer := Transaction{ID: uuid.NewString(), Reference: "TRF-1", Type: TypeTransfer, Status: StatusSuccess, Amount: 500}
	for _, txn := range []Transaction{deposit, transfer} {
		if err := repo.InsertTransaction(ctx, txn); err != nil {
			t.Fatalf("insert %s: %v", txn.Reference, err)
		}
	}

	status, err := svc.DepositStatus(ctx, "TRX-1")
	if err != nil || status != StatusPending {
		t.Fatalf("expected pending, got %q (%v)", status, err)
	}
	if _, err := svc.DepositStatus(ctx, "TRF-1"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for transfer reference, got %v", err)
	}
	if _, err := svc.DepositStatus(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unknown reference, got %v", err)
	}
}
