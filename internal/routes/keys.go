package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_wallet/internal/apikey"
	"github.com/congo-pay/congo_wallet/internal/middleware"
)

// RegisterKeyRoutes wires API key management. Keys can only be managed
// from a user session.
func RegisterKeyRoutes(r fiber.Router, h *apikey.Handler, authn, idempotent fiber.Handler) {
	group := r.Group("/keys", authn, middleware.SessionOnly())
	group.Post("/", idempotent, h.Create)
	group.Get("/", h.List)
	group.Post("/rollover", idempotent, h.Rollover)
	group.Delete("/:id", h.Revoke)
}
