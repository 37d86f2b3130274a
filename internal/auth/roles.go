package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// RequireCustomer rejects provider accounts on customer-only routes.
func RequireCustomer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.User.Provider {
			return apperrors.ErrForbidden
		}
		return c.Next()
	}
}
