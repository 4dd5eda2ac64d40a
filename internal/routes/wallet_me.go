package routes

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/identity"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

// Profiles looks up the caller's user record.
type Profiles interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
}

// RegisterWalletMeRoute exposes a GET endpoint to view the current user's wallet and profile.
func RegisterWalletMeRoute(r fiber.Router, wallets *wallet.Service, users Profiles, authn fiber.Handler) {
	r.Get("/me", authn, func(c *fiber.Ctx) error {
		p, _ := access.FromContext(c.UserContext())
		if err := access.Require(p, access.PermRead); err != nil {
			return err
		}
		user, err := users.FindByID(c.UserContext(), p.UserID)
		if err != nil {
			return err
		}
		bal, err := wallets.Balance(c.UserContext(), p)
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"user": fiber.Map{
				"id":         user.ID,
				"email":      user.Email,
				"name":       user.Name,
				"role":       user.Role,
				"created_at": user.CreatedAt,
			},
			"wallet": fiber.Map{
				"wallet_number": bal.WalletNumber,
				"balance":       bal.Amount,
				"as_of":         bal.AsOf,
			},
			"auth": fiber.Map{
				"source":      p.Source,
				"key_id":      p.KeyID,
				"permissions": permissions(p),
			},
		})
	})
}

func permissions(p access.Principal) []string {
	out := make([]string, 0, len(p.Permissions))
	for _, perm := range access.All() {
		if p.HasAll(perm) {
			out = append(out, perm)
		}
	}
	return out
}
