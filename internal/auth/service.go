package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/identity"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	issuer           = "congo_wallet"
)

var errInvalidToken = apperr.Unauthorized("invalid or expired token")

// Users is the identity lookup the token service validates against.
type Users interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
	BumpTokenVersion(ctx context.Context, id string) (identity.User, error)
}

// Config holds signing secrets and lifetimes.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Claims is the JWT payload for both token types.
type Claims struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	Type    string `json:"typ"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// TokenPair is returned on login, registration and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenService issues and verifies session tokens.
type TokenService struct {
	cfg   Config
	users Users
	now   func() time.Time
}

// NewTokenService builds a token service.
func NewTokenService(cfg Config, users Users) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{cfg: cfg, users: users, now: time.Now}, nil
}

// Issue signs an access and refresh token for user.
func (s *TokenService) Issue(user identity.User) (TokenPair, error) {
	accessToken, err := s.sign(user, tokenTypeAccess, s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := s.sign(user, tokenTypeRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

func (s *TokenService) sign(user identity.User, typ, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email:   user.Email,
		Role:    user.Role,
		Type:    typ,
		Version: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", apperr.Internal(err, "sign token")
	}
	return signed, nil
}

// ParseAccess verifies an access token and returns its claims.
func (s *TokenService) ParseAccess(token string) (*Claims, error) {
	return s.parse(token, tokenTypeAccess)
}

func (s *TokenService) parse(token, typ string) (*Claims, error) {
	secret := s.cfg.AccessSecret
	if typ == tokenTypeRefresh {
		secret = s.cfg.RefreshSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Type != typ || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Verify resolves an access token into a session principal. Tokens issued
// before the user's last logout are rejected.
func (s *TokenService) Verify(ctx context.Context, token string) (access.Principal, error) {
	claims, err := s.ParseAccess(token)
	if err != nil {
		return access.Principal{}, err
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return access.Principal{}, err
	}
	return access.SessionPrincipal(user.ID, user.Email), nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	return s.Issue(user)
}

// Logout invalidates every token issued to userID.
func (s *TokenService) Logout(ctx context.Context, userID string) error {
	_, err := s.users.BumpTokenVersion(ctx, userID)
	return err
}

func (s *TokenService) current(ctx context.Context, claims *Claims) (identity.User, error) {
	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) || errors.Is(err, identity.ErrUserNotFound) {
			return identity.User{}, errInvalidToken
		}
		return identity.User{}, err
	}
	if user.TokenVersion != claims.Version {
		return identity.User{}, apperr.Unauthorized("token has been revoked")
	}
	return user, nil
}
