package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/afftrack/afftrack/internal/app/service"
	"github.com/gofiber/fiber/v2"
)

// PrincipalKey is the fiber locals key under which the caller identity lives.
const PrincipalKey = "principal"

// Principal builds the caller identity for API routes. Session handling lives
// in the gateway in front of this service: it forwards the authenticated user
// in X-User-ID. The admin capability is granted to callers presenting the
// configured admin key as a bearer token.
func Principal(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := service.Principal{
			UserID: c.Get("X-User-ID"),
		}

		if adminKey != "" {
			token := bearerToken(c.Get(fiber.HeaderAuthorization))
			if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(adminKey)) == 1 {
				p.Admin = true
			}
		}

		c.Locals(PrincipalKey, p)
		return c.Next()
	}
}

// CallerPrincipal reads the identity stored by the Principal middleware.
func CallerPrincipal(c *fiber.Ctx) service.Principal {
	if p, ok := c.Locals(PrincipalKey).(service.Principal); ok {
		return p
	}
	return service.Principal{}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
