package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
)

// Handler exposes wallet query endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type historyResponse struct {
	Amount int64             `json:"amount"`
	Type   TransactionType   `json:"type"`
	Status TransactionStatus `json:"status"`
}

// Balance returns the caller's balance in minor units.
func (h *Handler) Balance(c *fiber.Ctx) error {
	p, _ := access.FromContext(c.UserContext())
	balance, err := h.service.Balance(c.UserContext(), p)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_number": balance.WalletNumber,
		"balance":       balance.Amount,
		"timestamp":     balance.AsOf,
	})
}

// Transactions returns the caller's transaction history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	p, _ := access.FromContext(c.UserContext())
	entries, err := h.service.Transactions(c.UserContext(), p)
	if err != nil {
		return err
	}
	out := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyResponse(e))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// DepositStatus is the public, status-only lookup by reference.
func (h *Handler) DepositStatus(c *fiber.Ctx) error {
	reference := c.Params("reference")
	if reference == "" {
		return apperr.BadRequest("reference is required")
	}
	status, err := h.service.DepositStatus(c.UserContext(), reference)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"reference": reference,
		"status":    status,
	})
}
