package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/logging"
)

const (
	secretPrefix  = "sk_"
	secretBytes   = 32
	displayLength = len(secretPrefix) + 8
)

var errInvalidKey = apperr.Unauthorized("invalid api key")

// Service manages the API key lifecycle.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.Component(l, "apikey") }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a key service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hash returns the stored form of a secret.
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return secretPrefix + hex.EncodeToString(b), nil
}

func normalizePermissions(perms []string) ([]string, error) {
	if len(perms) == 0 {
		return nil, apperr.BadRequest("at least one permission is required")
	}
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if !access.Known(p) {
			return nil, apperr.BadRequest("unknown permission: " + p)
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Create issues a key for userID. The plaintext secret is only ever
// returned here and from Rotate.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Issued, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Issued{}, apperr.BadRequest("name is required")
	}
	perms, err := normalizePermissions(in.Permissions)
	if err != nil {
		return Issued{}, err
	}
	now := s.now().UTC()
	expiresAt, err := ParseExpiry(in.Expiry, now)
	if err != nil {
		return Issued{}, apperr.BadRequest(err.Error())
	}
	secret, err := newSecret()
	if err != nil {
		return Issued{}, apperr.Internal(err, "generate api key")
	}

	key := Key{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Prefix:      secret[:displayLength],
		Hash:        Hash(secret),
		Permissions: perms,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, key, MaxActiveKeys, now); err != nil {
		if errors.Is(err, ErrKeyLimit) {
			return Issued{}, apperr.BadRequest("api key limit reached, at most 5 active keys are allowed")
		}
		return Issued{}, apperr.Internal(err, "create api key")
	}
	s.logger.Info("api key created", slog.String("user_id", userID), slog.String("key_id", key.ID))
	return Issued{Key: key, Secret: secret}, nil
}

// Validate resolves a presented secret into a principal holding exactly the
// key's stored capabilities.
func (s *Service) Validate(ctx context.Context, secret string) (access.Principal, error) {
	if !strings.HasPrefix(secret, secretPrefix) {
		return access.Principal{}, errInvalidKey
	}
	key, err := s.repo.FindByHash(ctx, Hash(secret))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return access.Principal{}, errInvalidKey
		}
		return access.Principal{}, apperr.Internal(err, "lookup api key")
	}
	now := s.now().UTC()
	if !key.Active(now) {
		return access.Principal{}, errInvalidKey
	}
	if err := s.repo.TouchLastUsed(ctx, key.ID, now); err != nil {
		s.logger.Warn("record api key use failed", slog.String("key_id", key.ID), slog.Any("error", err))
	}
	p := access.NewPrincipal(key.UserID, access.SourceAPIKey, key.Permissions...)
	p.KeyID = key.ID
	return p, nil
}

// List returns the caller's keys without secrets.
func (s *Service) List(ctx context.Context, userID string) ([]Key, error) {
	keys, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "list api keys")
	}
	return keys, nil
}

// Revoke permanently disables one of the caller's keys.
func (s *Service) Revoke(ctx context.Context, userID, keyID string) error {
	if err := s.repo.Revoke(ctx, userID, keyID, s.now().UTC()); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return apperr.NotFound("api key not found")
		}
		return apperr.Internal(err, "revoke api key")
	}
	s.logger.Info("api key revoked", slog.String("user_id", userID), slog.String("key_id", keyID))
	return nil
}

// Rotate issues a fresh secret for an expired key, keeping its name and
// capabilities. Revoked keys and keys still in their lifetime are refused.
func (s *Service) Rotate(ctx context.Context, userID, keyID, expiry string) (Issued, error) {
	key, err := s.repo.Get(ctx, userID, keyID)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return Issued{}, apperr.NotFound("api key not found")
		}
		return Issued{}, apperr.Internal(err, "lookup api key")
	}
	now := s.now().UTC()
	if key.RevokedAt != nil {
		return Issued{}, apperr.BadRequest("cannot rotate a revoked api key")
	}
	if !key.Expired(now) {
		return Issued{}, apperr.BadRequest("cannot rotate an api key that has not expired")
	}
	expiresAt, err := ParseExpiry(expiry, now)
	if err != nil {
		return Issued{}, apperr.BadRequest(err.Error())
	}
	keys, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Issued{}, apperr.Internal(err, "list api keys")
	}
	active := 0
	for _, k := range keys {
		if k.Active(now) {
			active++
		}
	}
	if active >= MaxActiveKeys {
		return Issued{}, apperr.BadRequest("api key limit reached, at most 5 active keys are allowed")
	}
	secret, err := newSecret()
	if err != nil {
		return Issued{}, apperr.Internal(err, "generate api key")
	}

	key.Prefix, key.Hash, key.ExpiresAt, key.LastUsedAt = secret[:displayLength], Hash(secret), expiresAt, nil
	if err := s.repo.Replace(ctx, userID, keyID, key.Prefix, key.Hash, expiresAt); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return Issued{}, apperr.NotFound("api key not found")
		}
		return Issued{}, apperr.Internal(err, "rotate api key")
	}
	s.logger.Info("api key rotated", slog.String("user_id", userID), slog.String("key_id", keyID))
	return Issued{Key: key, Secret: secret}, nil
}
