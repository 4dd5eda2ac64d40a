package apikey

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/validation"
)

// Handler exposes key management endpoints. Routes are expected to sit
// behind session-only authentication.
type Handler struct {
	service *Service
}

// NewHandler constructs a key handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Permissions []string `json:"permissions" validate:"required"`
	Expiry      string   `json:"expiry" validate:"required"`
}

type rolloverRequest struct {
	ExpiredKeyID string `json:"expired_key_id" validate:"required"`
	Expiry       string `json:"expiry" validate:"required"`
}

type keyView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Prefix      string     `json:"prefix"`
	Permissions []string   `json:"permissions"`
	Active      bool       `json:"active"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type issuedView struct {
	keyView
	Key string `json:"api_key"`
}

func view(k Key, now time.Time) keyView {
	return keyView{
		ID:          k.ID,
		Name:        k.Name,
		Prefix:      k.Prefix,
		Permissions: k.Permissions,
		Active:      k.Active(now),
		ExpiresAt:   k.ExpiresAt,
		RevokedAt:   k.RevokedAt,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}

func caller(c *fiber.Ctx) (access.Principal, error) {
	p, _ := access.FromContext(c.UserContext())
	if p.UserID == "" {
		return access.Principal{}, apperr.Unauthorized("authentication required")
	}
	return p, nil
}

// Create issues a new key and returns its secret once.
func (h *Handler) Create(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	issued, err := h.service.Create(c.UserContext(), p.UserID, CreateInput{
		Name:        req.Name,
		Permissions: req.Permissions,
		Expiry:      req.Expiry,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(issuedView{keyView: view(issued.Key, h.service.now()), Key: issued.Secret})
}

// List returns the caller's keys.
func (h *Handler) List(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	keys, err := h.service.List(c.UserContext(), p.UserID)
	if err != nil {
		return err
	}
	now := h.service.now()
	out := make([]keyView, 0, len(keys))
	for _, k := range keys {
		out = append(out, view(k, now))
	}
	return c.JSON(out)
}

// Revoke disables a key.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.service.Revoke(c.UserContext(), p.UserID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "revoked"})
}

// Rollover reissues an expired key with the same capabilities.
func (h *Handler) Rollover(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req rolloverRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	issued, err := h.service.Rotate(c.UserContext(), p.UserID, req.ExpiredKeyID, req.Expiry)
	if err != nil {
		return err
	}
	return c.JSON(issuedView{keyView: view(issued.Key, h.service.now()), Key: issued.Secret})
}
