package funding

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/paystack"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

// Handler exposes HTTP endpoints for deposits and gateway callbacks.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Deposit initiates a gateway-funded deposit for the caller.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	amount, err := wallet.ToMinorUnits(req.Amount)
	if err != nil {
		return wallet.AsAppError(err)
	}

	p, _ := access.FromContext(c.UserContext())
	deposit, err := h.service.InitiateDeposit(c.UserContext(), p, amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(DepositResponse{
		Reference:        deposit.Reference,
		AuthorizationURL: deposit.AuthorizationURL,
		Amount:           deposit.Amount,
	})
}

// Webhook receives gateway events. The signature covers the raw body, so
// the body is never re-encoded before verification.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	outcome, err := h.service.HandleWebhook(c.UserContext(), c.Body(), c.Get(paystack.SignatureHeader))
	if apperr.Is(err, apperr.KindForbidden) {
		return err
	}
	// Failures are logged by the service and acknowledged so that the
	// gateway does not retry-storm on outcomes it cannot fix.
	return c.Status(http.StatusOK).JSON(WebhookResponse{Status: true, Outcome: outcome})
}

// Callback handles the payer redirect after checkout.
func (h *Handler) Callback(c *fiber.Ctx) error {
	v, err := h.service.VerifyPayment(c.UserContext(), c.Query("reference"))
	if err != nil {
		return err
	}
	view := VerificationView{Reference: v.Reference, Status: v.Status, Amount: v.Amount}
	if !v.Succeeded() {
		return c.Status(http.StatusBadRequest).JSON(CallbackResponse{
			Success: false,
			Message: "payment verification failed",
			Data:    view,
		})
	}
	return c.Status(http.StatusOK).JSON(CallbackResponse{
		Success: true,
		Message: "payment successful",
		Data:    view,
	})
}
