package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_wallet/internal/funding"
	"github.com/congo-pay/congo_wallet/internal/payments"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

// WalletHandlers groups the handlers mounted under /wallet.
type WalletHandlers struct {
	Wallet   *wallet.Handler
	Funding  *funding.Handler
	Payments *payments.Handler
}

// RegisterWalletRoutes wires wallet-related endpoints. The webhook,
// callback and deposit status routes are public; the webhook authenticates
// by signature.
func RegisterWalletRoutes(r fiber.Router, h WalletHandlers, authn, idempotent fiber.Handler) {
	group := r.Group("/wallet")

	group.Post("/paystack/webhook", h.Funding.Webhook)
	group.Get("/paystack/callback", h.Funding.Callback)
	group.Get("/deposit/:reference/status", h.Wallet.DepositStatus)

	group.Post("/deposit", authn, idempotent, h.Funding.Deposit)
	group.Post("/transfer", authn, idempotent, h.Payments.Transfer)
	group.Get("/balance", authn, h.Wallet.Balance)
	group.Get("/transactions", authn, h.Wallet.Transactions)
}
