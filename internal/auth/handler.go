package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/identity"
	"github.com/congo-pay/congo_wallet/internal/validation"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

// Accounts is the identity surface the auth endpoints need.
type Accounts interface {
	Register(ctx context.Context, in identity.RegisterInput) (identity.User, error)
	Authenticate(ctx context.Context, email, password string) (identity.User, error)
}

// WalletLookup resolves a user's wallet for login responses.
type WalletLookup interface {
	ForUser(ctx context.Context, userID string) (wallet.Wallet, error)
}

// Handler exposes register/login/refresh/logout.
type Handler struct {
	accounts Accounts
	tokens   *TokenService
	wallets  WalletLookup
}

// NewHandler builds the auth handler.
func NewHandler(accounts Accounts, tokens *TokenService, wallets WalletLookup) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, wallets: wallets}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	WalletNumber string `json:"wallet_number,omitempty"`
	TokenPair
}

// Register onboards a user and returns a token pair.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	user, err := h.accounts.Register(c.UserContext(), identity.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	return h.session(c, http.StatusCreated, user)
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	user, err := h.accounts.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.session(c, http.StatusOK, user)
}

// Refresh rotates a token pair using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	pair, err := h.tokens.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(pair)
}

// Logout invalidates every token issued to the caller.
func (h *Handler) Logout(c *fiber.Ctx) error {
	p, _ := access.FromContext(c.UserContext())
	if p.UserID == "" {
		return apperr.Unauthorized("authentication required")
	}
	if err := h.tokens.Logout(c.UserContext(), p.UserID); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

func (h *Handler) session(c *fiber.Ctx, status int, user identity.User) error {
	pair, err := h.tokens.Issue(user)
	if err != nil {
		return err
	}
	resp := sessionResponse{UserID: user.ID, Email: user.Email, TokenPair: pair}
	if h.wallets != nil {
		if w, err := h.wallets.ForUser(c.UserContext(), user.ID); err == nil {
			resp.WalletNumber = w.WalletNumber
		}
	}
	return c.Status(status).JSON(resp)
}
