package apikey

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.Mutex
	keys   map[string]Key
	byHash map[string]string
}

// NewMemoryRepository builds an in-memory key store.
func NewMemoryRepository() Repository {
	return &memoryRepository{keys: make(map[string]Key), byHash: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, key Key, limit int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := 0
	for _, k := range r.keys {
		if k.UserID == key.UserID && k.Active(now) {
			active++
		}
	}
	if active >= limit {
		return ErrKeyLimit
	}
	key.Permissions = slices.Clone(key.Permissions)
	r.keys[key.ID] = key
	r.byHash[key.Hash] = key.ID
	return nil
}

func (r *memoryRepository) FindByHash(_ context.Context, hash string) (Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHash[hash]
	if !ok {
		return Key{}, ErrKeyNotFound
	}
	return r.keys[id], nil
}

func (r *memoryRepository) Get(_ context.Context, userID, id string) (Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.UserID != userID {
		return Key{}, ErrKeyNotFound
	}
	return k, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []Key
	for _, k := range r.keys {
		if k.UserID == userID {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b Key) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return keys, nil
}

func (r *memoryRepository) Revoke(_ context.Context, userID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.UserID != userID {
		return ErrKeyNotFound
	}
	if k.RevokedAt == nil {
		k.RevokedAt = &at
		r.keys[id] = k
	}
	return nil
}

func (r *memoryRepository) Replace(_ context.Context, userID, id, prefix, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.UserID != userID || k.RevokedAt != nil {
		return ErrKeyNotFound
	}
	delete(r.byHash, k.Hash)
	k.Prefix, k.Hash, k.ExpiresAt, k.LastUsedAt = prefix, hash, expiresAt, nil
	r.keys[id] = k
	r.byHash[hash] = id
	return nil
}

func (r *memoryRepository) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	k.LastUsedAt = &at
	r.keys[id] = k
	return nil
}
