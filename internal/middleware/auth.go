// Package middleware provides HTTP middleware components for the application.
// It authenticates ledger callers from bearer tokens and enforces the
// permissions carried in their claims.
package middleware

import (
	"strings"

	"custody/internal/domain/ledger"
	"custody/internal/logger"
	"custody/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware handles JWT token validation and caller identification.
type AuthMiddleware struct {
	secret string
	log    *logger.Logger
}

func NewAuthMiddleware(secret string, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthMiddleware{
		secret: secret,
		log:    log,
	}
}

// Handler validates the bearer token and stores the claims and the caller
// address in the request context.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}

	claims, err := utils.ParseToken(m.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.log.Debug("token validation failed", "path", c.Path(), "error", err)
		return utils.Unauthorized(c, "invalid token")
	}

	caller := ledger.Address(claims.Subject)
	if caller.IsZero() {
		return utils.Unauthorized(c, "invalid token subject")
	}

	c.Locals("claims", claims)
	c.Locals("caller", caller)

	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.GetLedgerClaims(c)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		if claims.HasPermission(permission) {
			return c.Next()
		}

		return utils.Forbidden(c, "Insufficient permissions")
	}
}

// Caller returns the authenticated account address stored by Handler.
func Caller(c *fiber.Ctx) (ledger.Address, bool) {
	caller, ok := c.Locals("caller").(ledger.Address)
	return caller, ok
}
