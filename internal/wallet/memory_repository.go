package wallet

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var errConcurrentTransition = errors.New("transaction status changed concurrently")

// MemoryRepository keeps wallets in process memory. It honours the same
// contract as the Postgres repository: wallet locks are exclusive and held
// until the unit of work ends, and staged writes become visible only on
// commit.
type MemoryRepository struct {
	mu           sync.Mutex
	wallets      map[string]Wallet
	byUser       map[string]string
	byNumber     map[string]string
	transactions map[string]Transaction
	history      []string
	locks        map[string]chan struct{}
}

// NewMemoryRepository constructs an in-memory repository for tests and
// development.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		wallets:      make(map[string]Wallet),
		byUser:       make(map[string]string),
		byNumber:     make(map[string]string),
		transactions: make(map[string]Transaction),
		locks:        make(map[string]chan struct{}),
	}
}

// SeedBalance overwrites a committed wallet balance.
func (r *MemoryRepository) SeedBalance(id string, balance int64) error {
	if balance < 0 {
		return ErrNegativeBalance
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return ErrWalletNotFound
	}
	w.Balance = balance
	r.wallets[id] = w
	return nil
}

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memTx{
		repo:    r,
		held:    make(map[string]struct{}),
		wallets: make(map[string]Wallet),
		created: make(map[string]struct{}),
		txns:    make(map[string]Transaction),

		transitions: make(map[string]transition),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (r *MemoryRepository) GetByUser(_ context.Context, userID string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byUser[userID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return r.wallets[id], nil
}

func (r *MemoryRepository) GetByNumber(_ context.Context, number string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byNumber[number]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return r.wallets[id], nil
}

func (r *MemoryRepository) TransactionByReference(_ context.Context, reference string) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[reference]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, nil
}

// TransactionsByWallet returns the wallet's history, newest first. Entries
// created at the same instant keep reverse insertion order.
func (r *MemoryRepository) TransactionsByWallet(_ context.Context, walletID string) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for i := len(r.history) - 1; i >= 0; i-- {
		if t := r.transactions[r.history[i]]; t.WalletID == walletID {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b Transaction) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) InsertTransaction(_ context.Context, t Transaction) error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transactions[t.Reference]; exists {
		return ErrDuplicateReference
	}
	r.putTransaction(t)
	return nil
}

func (r *MemoryRepository) putTransaction(t Transaction) {
	if _, exists := r.transactions[t.Reference]; !exists {
		r.history = append(r.history, t.Reference)
	}
	r.transactions[t.Reference] = t
}

func (r *MemoryRepository) lockFor(id string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		r.locks[id] = ch
	}
	return ch
}

type transition struct {
	from TransactionStatus
}

type memTx struct {
	repo        *MemoryRepository
	held        map[string]struct{}
	wallets     map[string]Wallet
	created     map[string]struct{}
	txns        map[string]Transaction
	inserted    []string
	transitions map[string]transition
	closed      bool
}

func (t *memTx) LockWallet(ctx context.Context, id string) (Wallet, error) {
	if t.closed {
		return Wallet{}, ErrTxClosed
	}
	if _, ok := t.held[id]; ok {
		return t.wallet(id)
	}
	if _, ok := t.created[id]; ok {
		return t.wallets[id], nil
	}
	if _, err := t.wallet(id); err != nil {
		return Wallet{}, err
	}

	ch := t.repo.lockFor(id)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return Wallet{}, ctx.Err()
	}
	t.held[id] = struct{}{}
	return t.wallet(id)
}

func (t *memTx) WalletByUser(_ context.Context, userID string) (Wallet, error) {
	if t.closed {
		return Wallet{}, ErrTxClosed
	}
	for id := range t.created {
		if w := t.wallets[id]; w.UserID == userID {
			return w, nil
		}
	}
	t.repo.mu.Lock()
	id, ok := t.repo.byUser[userID]
	t.repo.mu.Unlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return t.wallet(id)
}

func (t *memTx) WalletByNumber(_ context.Context, number string) (Wallet, error) {
	if t.closed {
		return Wallet{}, ErrTxClosed
	}
	for id := range t.created {
		if w := t.wallets[id]; w.WalletNumber == number {
			return w, nil
		}
	}
	t.repo.mu.Lock()
	id, ok := t.repo.byNumber[number]
	t.repo.mu.Unlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return t.wallet(id)
}

func (t *memTx) WalletNumberExists(ctx context.Context, number string) (bool, error) {
	_, err := t.WalletByNumber(ctx, number)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrWalletNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (t *memTx) CreateWallet(_ context.Context, w Wallet) error {
	if t.closed {
		return ErrTxClosed
	}
	if w.Balance < 0 {
		return ErrNegativeBalance
	}
	for id := range t.created {
		staged := t.wallets[id]
		if staged.ID == w.ID || staged.UserID == w.UserID {
			return ErrDuplicateWallet
		}
		if staged.WalletNumber == w.WalletNumber {
			return ErrWalletNumberTaken
		}
	}
	t.repo.mu.Lock()
	err := t.repo.checkWalletUnique(w)
	t.repo.mu.Unlock()
	if err != nil {
		return err
	}
	t.wallets[w.ID] = w
	t.created[w.ID] = struct{}{}
	return nil
}

func (t *memTx) UpdateBalance(_ context.Context, id string, balance int64) error {
	if t.closed {
		return ErrTxClosed
	}
	_, held := t.held[id]
	_, created := t.created[id]
	if !held && !created {
		return ErrWalletNotLocked
	}
	if balance < 0 {
		return ErrNegativeBalance
	}
	w, err := t.wallet(id)
	if err != nil {
		return err
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	t.wallets[id] = w
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn Transaction) error {
	if t.closed {
		return ErrTxClosed
	}
	if err := ValidateAmount(txn.Amount); err != nil {
		return err
	}
	if _, staged := t.txns[txn.Reference]; staged {
		return ErrDuplicateReference
	}
	t.repo.mu.Lock()
	_, exists := t.repo.transactions[txn.Reference]
	t.repo.mu.Unlock()
	if exists {
		return ErrDuplicateReference
	}
	t.txns[txn.Reference] = txn
	t.inserted = append(t.inserted, txn.Reference)
	return nil
}

func (t *memTx) TransitionTransaction(_ context.Context, reference string, from, to TransactionStatus) (bool, error) {
	if t.closed {
		return false, ErrTxClosed
	}
	txn, ok := t.txns[reference]
	if !ok {
		t.repo.mu.Lock()
		txn, ok = t.repo.transactions[reference]
		t.repo.mu.Unlock()
	}
	if !ok || txn.Status != from {
		return false, nil
	}
	if !slices.Contains(t.inserted, reference) {
		if _, seen := t.transitions[reference]; !seen {
			t.transitions[reference] = transition{from: from}
		}
	}
	txn.Status = to
	txn.UpdatedAt = time.Now().UTC()
	t.txns[reference] = txn
	return true, nil
}

// wallet reads the staged copy first, then committed state.
func (t *memTx) wallet(id string) (Wallet, error) {
	if w, ok := t.wallets[id]; ok {
		return w, nil
	}
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	w, ok := t.repo.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (t *memTx) commit() error {
	if t.closed {
		return ErrTxClosed
	}
	r := t.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range t.created {
		if err := r.checkWalletUnique(t.wallets[id]); err != nil {
			return err
		}
	}
	for _, ref := range t.inserted {
		if _, exists := r.transactions[ref]; exists {
			return ErrDuplicateReference
		}
	}
	for ref, tr := range t.transitions {
		if current, ok := r.transactions[ref]; !ok || current.Status != tr.from {
			return errConcurrentTransition
		}
	}

	for id, w := range t.wallets {
		r.wallets[id] = w
		r.byUser[w.UserID] = id
		r.byNumber[w.WalletNumber] = id
	}
	for _, ref := range t.inserted {
		r.putTransaction(t.txns[ref])
	}
	for ref := range t.txns {
		if !slices.Contains(t.inserted, ref) {
			r.putTransaction(t.txns[ref])
		}
	}
	return nil
}

// release drops every held lock. It runs after commit or rollback.
func (t *memTx) release() {
	t.closed = true
	for id := range t.held {
		<-t.repo.lockFor(id)
	}
	t.held = nil
}

func (r *MemoryRepository) checkWalletUnique(w Wallet) error {
	if _, exists := r.wallets[w.ID]; exists {
		return ErrDuplicateWallet
	}
	if _, exists := r.byUser[w.UserID]; exists {
		return ErrDuplicateWallet
	}
	if _, exists := r.byNumber[w.WalletNumber]; exists {
		return ErrWalletNumberTaken
	}
	return nil
}
