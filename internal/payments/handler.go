package payments

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/validation"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	WalletNumber int64           `json:"wallet_number" validate:"required,gt=0"`
	Amount       decimal.Decimal `json:"amount"`
}

// Transfer processes a wallet-to-wallet transfer for the caller.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	amount, err := wallet.ToMinorUnits(req.Amount)
	if err != nil {
		return wallet.AsAppError(err)
	}

	p, _ := access.FromContext(c.UserContext())
	res, err := h.service.Transfer(c.UserContext(), p, TransferInput{
		RecipientWalletNumber: strconv.FormatInt(req.WalletNumber, 10),
		Amount:                amount,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status":    "success",
		"message":   "Transfer complete",
		"reference": res.Reference,
		"amount":    res.Amount,
		"balance":   res.SenderBalance,
	})
}
