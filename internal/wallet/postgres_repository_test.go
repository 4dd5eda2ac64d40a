package wallet

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/congo_wallet/internal/infra"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("WALLET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("WALLET_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := infra.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, infra.Migrate(ctx, pool))
	return pool
}

func insertUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		id, id.String()+"@example.com", []byte("x"))
	require.NoError(t, err)
	return id.String()
}

func TestPostgresProvisionCreditAndHistory(t *testing.T) {
	pool := testPool(t)
	repo := NewPostgresRepository(pool)
	svc := NewService(repo)
	ctx := context.Background()

	w := provision(t, svc, insertUser(t, pool))

	ref := "TRX-" + uuid.NewString()
	require.NoError(t, repo.InsertTransaction(ctx, Transaction{
		ID: uuid.NewString(), WalletID: w.ID, Reference: ref, Type: TypeDeposit, Status: StatusPending, Amount: 700,
	}))
	require.ErrorIs(t, repo.InsertTransaction(ctx, Transaction{
		ID: uuid.NewString(), WalletID: w.ID, Reference: ref, Type: TypeDeposit, Status: StatusPending, Amount: 700,
	}), ErrDuplicateReference)

	require.NoError(t, repo.WithTx(ctx, func(tx Tx) error {
		locked, err := LockWallets(ctx, tx, w.ID)
		if err != nil {
			return err
		}
		moved, err := tx.TransitionTransaction(ctx, ref, StatusPending, StatusSuccess)
		if err != nil || !moved {
			return err
		}
		_, err = Credit(ctx, tx, locked[w.ID], 700)
		return err
	}))

	got, err := repo.GetByNumber(ctx, w.WalletNumber)
	require.NoError(t, err)
	require.Equal(t, int64(700), got.Balance)

	history, err := repo.TransactionsByWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, StatusSuccess, history[0].Status)

	err = repo.WithTx(ctx, func(tx Tx) error {
		return tx.UpdateBalance(ctx, w.ID, 1)
	})
	require.ErrorIs(t, err, ErrWalletNotLocked)
}
