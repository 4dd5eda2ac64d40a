package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
)

// APIKeyHeader carries a service credential.
const APIKeyHeader = "x-api-key"

// SessionVerifier resolves a bearer token into a principal.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (access.Principal, error)
}

// KeyValidator resolves an API key secret into a principal.
type KeyValidator interface {
	Validate(ctx context.Context, secret string) (access.Principal, error)
}

// Authenticate resolves the caller from an x-api-key header or, failing
// that, a bearer token, and stores the principal on the request context.
// An API key header wins when both are present.
func Authenticate(sessions SessionVerifier, keys KeyValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			p   access.Principal
			err error
		)
		if secret := strings.TrimSpace(c.Get(APIKeyHeader)); secret != "" {
			if keys == nil {
				return apperr.Unauthorized("api keys are not accepted")
			}
			p, err = keys.Validate(c.UserContext(), secret)
		} else {
			authz := c.Get(fiber.HeaderAuthorization)
			if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
				return apperr.Unauthorized("missing credentials")
			}
			p, err = sessions.Verify(c.UserContext(), strings.TrimSpace(authz[len("Bearer "):]))
		}
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				return err
			}
			return apperr.Unauthorized(apperr.PublicMessage(err))
		}

		c.SetUserContext(access.WithPrincipal(c.UserContext(), p))
		c.Locals("user_id", p.UserID)
		return c.Next()
	}
}

// SessionOnly rejects callers authenticated with an API key.
func SessionOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := access.FromContext(c.UserContext())
		if !ok || p.UserID == "" {
			return apperr.Unauthorized("authentication required")
		}
		if p.Source != access.SourceSession {
			return apperr.Forbidden("this endpoint requires a user session")
		}
		return c.Next()
	}
}
