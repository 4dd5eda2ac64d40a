package identity

import (
	"context"
	"sync"

	"github.com/congo-pay/congo_wallet/internal/wallet"
)

type memoryRepository struct {
	mu      sync.Mutex
	users   map[string]User
	byEmail map[string]string
	wallets wallet.Repository
}

// NewMemoryRepository builds an in-memory user store. Provisioning runs in
// a unit of work on wallets, and the user is stored only if it commits.
func NewMemoryRepository(wallets wallet.Repository) Repository {
	return &memoryRepository{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		wallets: wallets,
	}
}

func (r *memoryRepository) Create(ctx context.Context, user User, provision Provisioner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return ErrEmailTaken
	}
	if provision != nil && r.wallets != nil {
		err := r.wallets.WithTx(ctx, func(tx wallet.Tx) error {
			return provision(ctx, tx, user.ID)
		})
		if err != nil {
			return err
		}
	}
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.TokenVersion = version
	r.users[id] = user
	return nil
}
