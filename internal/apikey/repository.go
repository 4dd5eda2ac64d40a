package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists API keys.
type Repository interface {
	// Create stores key unless the owner already holds limit active keys.
	Create(ctx context.Context, key Key, limit int, now time.Time) error
	FindByHash(ctx context.Context, hash string) (Key, error)
	Get(ctx context.Context, userID, id string) (Key, error)
	ListByUser(ctx context.Context, userID string) ([]Key, error)
	Revoke(ctx context.Context, userID, id string, at time.Time) error
	// Replace swaps the secret and expiry of an existing key.
	Replace(ctx context.Context, userID, id, prefix, hash string, expiresAt time.Time) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

const keyColumns = `id, user_id, name, prefix, key_hash, permissions, expires_at, revoked_at, last_used_at, created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed key repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create counts the owner's active keys under a lock on the user row so
// concurrent creations cannot exceed limit.
func (r *PostgresRepository) Create(ctx context.Context, key Key, limit int, now time.Time) error {
	id, err := uuid.Parse(key.ID)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var owner uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, key.UserID).Scan(&owner); err != nil {
		return fmt.Errorf("lock key owner: %w", err)
	}
	var active int
	err = tx.QueryRow(ctx, `SELECT count(*) FROM api_keys
        WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2`, key.UserID, now.UTC()).Scan(&active)
	if err != nil {
		return err
	}
	if active >= limit {
		return ErrKeyLimit
	}

	_, err = tx.Exec(ctx, `INSERT INTO api_keys (id, user_id, name, prefix, key_hash, permissions, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, key.UserID, key.Name, key.Prefix, key.Hash, key.Permissions, key.ExpiresAt.UTC(), key.CreatedAt.UTC())
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindByHash fetches the key whose secret hashes to hash.
func (r *PostgresRepository) FindByHash(ctx context.Context, hash string) (Key, error) {
	return scanKey(r.db.QueryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE key_hash = $1`, hash))
}

// Get fetches one of userID's keys.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (Key, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Key{}, ErrKeyNotFound
	}
	return scanKey(r.db.QueryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID))
}

// ListByUser returns userID's keys, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Key, error) {
	rows, err := r.db.Query(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revoke marks a key unusable. Revoking twice is a no-op.
func (r *PostgresRepository) Revoke(ctx context.Context, userID, id string, at time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrKeyNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE api_keys SET revoked_at = COALESCE(revoked_at, $3)
        WHERE id = $1 AND user_id = $2`, id, userID, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// Replace installs a new secret and expiry on a non-revoked key.
func (r *PostgresRepository) Replace(ctx context.Context, userID, id, prefix, hash string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE api_keys SET prefix = $3, key_hash = $4, expires_at = $5, last_used_at = NULL
        WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL`, id, userID, prefix, hash, expiresAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// TouchLastUsed records a successful authentication.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at.UTC())
	return err
}

func scanKey(row pgx.Row) (Key, error) {
	var (
		k   Key
		id  uuid.UUID
		uid uuid.UUID
	)
	err := row.Scan(&id, &uid, &k.Name, &k.Prefix, &k.Hash, &k.Permissions, &k.ExpiresAt, &k.RevokedAt, &k.LastUsedAt, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Key{}, ErrKeyNotFound
		}
		return Key{}, err
	}
	k.ID = id.String()
	k.UserID = uid.String()
	return k, nil
}
