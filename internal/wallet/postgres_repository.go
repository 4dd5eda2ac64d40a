package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"

	walletNumberConstraint = "wallets_wallet_number_key"

	walletColumns      = `id, user_id, wallet_number, balance, created_at, updated_at`
	transactionColumns = `id, wallet_id, reference, type, status, amount,
        COALESCE(sender_wallet_number, ''), COALESCE(recipient_wallet_number, ''), created_at, updated_at`
)

// querier is the subset of pgx shared by the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores wallets and wallet transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// WithTx runs fn inside a database transaction and commits when fn succeeds.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(WrapTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Wallet, error) {
	return walletWhere(ctx, r.db, "id", id, false)
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (Wallet, error) {
	return walletWhere(ctx, r.db, "user_id", userID, false)
}

func (r *PostgresRepository) GetByNumber(ctx context.Context, number string) (Wallet, error) {
	return walletByNumber(ctx, r.db, number)
}

func (r *PostgresRepository) TransactionByReference(ctx context.Context, reference string) (Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM wallet_transactions WHERE reference = $1`, reference)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

// TransactionsByWallet returns the wallet's history, newest first.
func (r *PostgresRepository) TransactionsByWallet(ctx context.Context, walletID string) ([]Transaction, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrWalletNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+` FROM wallet_transactions
        WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) InsertTransaction(ctx context.Context, t Transaction) error {
	return insertTransaction(ctx, r.db, t)
}

// pgTx adapts an open pgx transaction to Tx. Wallets locked or created
// through it are tracked so balance writes can be checked against them.
type pgTx struct {
	tx     pgx.Tx
	locked map[string]struct{}
}

// WrapTx exposes an already open pgx transaction as a wallet unit of work so
// callers owning the transaction can provision wallets inside it.
func WrapTx(tx pgx.Tx) Tx {
	return &pgTx{tx: tx, locked: make(map[string]struct{})}
}

func (t *pgTx) LockWallet(ctx context.Context, id string) (Wallet, error) {
	w, err := walletWhere(ctx, t.tx, "id", id, true)
	if err != nil {
		return Wallet{}, err
	}
	t.locked[w.ID] = struct{}{}
	return w, nil
}

func (t *pgTx) WalletByUser(ctx context.Context, userID string) (Wallet, error) {
	return walletWhere(ctx, t.tx, "user_id", userID, false)
}

func (t *pgTx) WalletByNumber(ctx context.Context, number string) (Wallet, error) {
	return walletByNumber(ctx, t.tx, number)
}

func (t *pgTx) WalletNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE wallet_number = $1)`, number).Scan(&exists)
	return exists, err
}

func (t *pgTx) CreateWallet(ctx context.Context, w Wallet) error {
	if w.Balance < 0 {
		return ErrNegativeBalance
	}
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return fmt.Errorf("wallet id: %w", err)
	}
	userID, err := uuid.Parse(w.UserID)
	if err != nil {
		return fmt.Errorf("wallet owner: %w", err)
	}
	_, err = t.tx.Exec(ctx, `INSERT INTO wallets (id, user_id, wallet_number, balance, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, userID, w.WalletNumber, w.Balance, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == walletNumberConstraint {
			return fmt.Errorf("%w: %s", ErrWalletNumberTaken, w.WalletNumber)
		}
		return mapWriteError(err, ErrDuplicateWallet)
	}
	t.locked[w.ID] = struct{}{}
	return nil
}

func (t *pgTx) UpdateBalance(ctx context.Context, id string, balance int64) error {
	if _, ok := t.locked[id]; !ok {
		return ErrWalletNotLocked
	}
	if balance < 0 {
		return ErrNegativeBalance
	}
	tag, err := t.tx.Exec(ctx, `UPDATE wallets SET balance = $2, updated_at = $3 WHERE id = $1`,
		uuid.MustParse(id), balance, time.Now().UTC())
	if err != nil {
		return mapWriteError(err, ErrDuplicateWallet)
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn Transaction) error {
	return insertTransaction(ctx, t.tx, txn)
}

func (t *pgTx) TransitionTransaction(ctx context.Context, reference string, from, to TransactionStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE wallet_transactions SET status = $3, updated_at = $4
        WHERE reference = $1 AND status = $2`, reference, string(from), string(to), time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func walletWhere(ctx context.Context, q querier, column, value string, forUpdate bool) (Wallet, error) {
	key, err := uuid.Parse(value)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE ` + column + ` = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanWallet(q.QueryRow(ctx, query, key))
}

func walletByNumber(ctx context.Context, q querier, number string) (Wallet, error) {
	return scanWallet(q.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE wallet_number = $1`, number))
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		id, owner uuid.UUID
	)
	if err := row.Scan(&id, &owner, &w.WalletNumber, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.UserID = owner.String()
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		t        Transaction
		id       uuid.UUID
		walletID *uuid.UUID
		typ      string
		status   string
	)
	if err := row.Scan(&id, &walletID, &t.Reference, &typ, &status, &t.Amount,
		&t.SenderWalletNumber, &t.RecipientWalletNumber, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	t.ID = id.String()
	if walletID != nil {
		t.WalletID = walletID.String()
	}
	t.Type = TransactionType(typ)
	t.Status = TransactionStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func insertTransaction(ctx context.Context, q querier, t Transaction) error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	var walletID *uuid.UUID
	if t.WalletID != "" {
		parsed, err := uuid.Parse(t.WalletID)
		if err != nil {
			return ErrWalletNotFound
		}
		walletID = &parsed
	}
	_, err = q.Exec(ctx, `INSERT INTO wallet_transactions
        (id, wallet_id, reference, type, status, amount, sender_wallet_number, recipient_wallet_number, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)`,
		id, walletID, t.Reference, string(t.Type), string(t.Status), t.Amount,
		t.SenderWalletNumber, t.RecipientWalletNumber, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	return mapWriteError(err, ErrDuplicateReference)
}

// mapWriteError folds constraint violations into package sentinels.
func mapWriteError(err error, onUnique error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", onUnique, pgErr.ConstraintName)
	case pgCheckViolation:
		return fmt.Errorf("%w: %s", ErrNegativeBalance, pgErr.ConstraintName)
	}
	return err
}
