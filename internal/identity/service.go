package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/logging"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

const minPasswordLength = 8

// WalletProvisioner creates a user's wallet inside an open unit of work.
type WalletProvisioner interface {
	Provision(ctx context.Context, tx wallet.Tx, userID string) (wallet.Wallet, error)
}

// Service manages identity lifecycle.
type Service struct {
	repo    Repository
	wallets WalletProvisioner
	cost    int
	logger  *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Component(l, "identity") }
}

// NewService creates a new identity service.
func NewService(repo Repository, wallets WalletProvisioner, opts ...Option) *Service {
	s := &Service{repo: repo, wallets: wallets, cost: bcrypt.DefaultCost, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user together with its zero-balance wallet.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if normalizeEmail(in.Email) == "" {
		return User{}, apperr.BadRequest("email is required")
	}
	if len(in.Password) < minPasswordLength {
		return User{}, apperr.BadRequest("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, apperr.Internal(err, "user registration failed")
	}
	return s.create(ctx, normalizeEmail(in.Email), in.Name, hash)
}

func (s *Service) create(ctx context.Context, email, name string, hash []byte) (User, error) {
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.repo.Create(ctx, user, func(ctx context.Context, tx wallet.Tx, userID string) error {
		_, err := s.wallets.Provision(ctx, tx, userID)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrEmailTaken):
		return User{}, apperr.Wrap(apperr.KindConflict, "user with this email already exists", err)
	case apperr.KindOf(err) != apperr.KindInternal:
		return User{}, err
	default:
		s.logger.ErrorContext(ctx, "user registration failed", "email", email, "error", err)
		return User{}, apperr.Internal(err, "user registration failed")
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate verifies an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, apperr.Unauthorized("invalid credentials")
		}
		return User{}, apperr.Internal(err, "lookup user")
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, apperr.Unauthorized("invalid credentials")
	}
	return user, nil
}

// FindByID returns the user with id.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Internal(err, "lookup user")
	}
	return user, nil
}

// Email returns the email address of the user with id.
func (s *Service) Email(ctx context.Context, id string) (string, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

// BumpTokenVersion invalidates every token issued to the user so far.
func (s *Service) BumpTokenVersion(ctx context.Context, id string) (User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	user.TokenVersion++
	if err := s.repo.UpdateTokenVersion(ctx, id, user.TokenVersion); err != nil {
		return User{}, apperr.Internal(err, "update token version")
	}
	return user, nil
}
