package wallet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/logging"
	"github.com/congo-pay/congo_wallet/internal/metrics"
)

// Service exposes wallet provisioning and read-only queries. Balance
// mutation lives in the funding and payments services.
type Service struct {
	repo     Repository
	numbers  NumberGenerator
	attempts int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithNumberGenerator replaces the random wallet-number source.
func WithNumberGenerator(gen NumberGenerator) Option {
	return func(s *Service) { s.numbers = gen }
}

// WithNumberAttempts bounds wallet-number generation retries.
func WithNumberAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithMetrics records provisioning collisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Component(l, "wallet") }
}

// NewService builds a wallet service instance.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		numbers:  RandomNumber,
		attempts: DefaultNumberAttempts,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the backing store so that engines sharing it can open
// units of work.
func (s *Service) Repository() Repository {
	return s.repo
}

// Provision creates the zero-balance wallet for userID inside tx, so that it
// commits or rolls back together with the owning user.
func (s *Service) Provision(ctx context.Context, tx Tx, userID string) (Wallet, error) {
	number, err := allocateNumber(ctx, tx, s.numbers, s.attempts, s.metrics.WalletNumberCollision)
	if err != nil {
		if errors.Is(err, ErrWalletNumberExhausted) {
			s.logger.ErrorContext(ctx, "wallet number allocation exhausted", "user_id", userID, "attempts", s.attempts)
		}
		return Wallet{}, AsAppError(err)
	}

	now := time.Now().UTC()
	w := Wallet{
		ID:           uuid.NewString(),
		UserID:       userID,
		WalletNumber: number,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.CreateWallet(ctx, w); err != nil {
		if errors.Is(err, ErrWalletNumberTaken) {
			// The unique violation has aborted the caller's database
			// transaction, so another candidate cannot be tried here.
			s.metrics.WalletNumberCollision()
			s.logger.ErrorContext(ctx, "wallet number taken concurrently", "user_id", userID, "wallet_number", number)
			return Wallet{}, AsAppError(err)
		}
		if errors.Is(err, ErrDuplicateWallet) {
			return Wallet{}, apperr.Wrap(apperr.KindConflict, "wallet already exists", err)
		}
		return Wallet{}, AsAppError(err)
	}
	return w, nil
}

// ForUser returns the caller's wallet.
func (s *Service) ForUser(ctx context.Context, userID string) (Wallet, error) {
	w, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return Wallet{}, AsAppError(err)
	}
	return w, nil
}

// Balance returns the last committed balance of the caller's wallet.
func (s *Service) Balance(ctx context.Context, p access.Principal) (Balance, error) {
	if err := access.Require(p, access.PermRead); err != nil {
		return Balance{}, err
	}
	w, err := s.ForUser(ctx, p.UserID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletNumber: w.WalletNumber, Amount: w.Balance, AsOf: time.Now().UTC()}, nil
}

// Transactions lists the caller's history, newest first. Only amount, type
// and status are exposed.
func (s *Service) Transactions(ctx context.Context, p access.Principal) ([]HistoryEntry, error) {
	if err := access.Require(p, access.PermRead); err != nil {
		return nil, err
	}
	w, err := s.ForUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	txns, err := s.repo.TransactionsByWallet(ctx, w.ID)
	if err != nil {
		return nil, AsAppError(err)
	}
	out := make([]HistoryEntry, 0, len(txns))
	for _, t := range txns {
		out = append(out, HistoryEntry{Amount: t.Amount, Type: t.Type, Status: t.Status})
	}
	return out, nil
}

// DepositStatus reports the status of a deposit by reference alone. Other
// transaction types are reported as not found.
func (s *Service) DepositStatus(ctx context.Context, reference string) (TransactionStatus, error) {
	t, err := s.repo.TransactionByReference(ctx, reference)
	if err != nil {
		return "", AsAppError(err)
	}
	if t.Type != TypeDeposit {
		return "", apperr.NotFound("transaction not found")
	}
	return t.Status, nil
}
