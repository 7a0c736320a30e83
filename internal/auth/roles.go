package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/simgate/sim-gateway/pkg/util/errorutil"
)

// Role is the access level carried by a bearer token.
type Role string

const (
	// RoleOperator may run USSD sessions and read slots and history.
	RoleOperator Role = "operator"
	// RoleAdmin may additionally change slot status.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleOperator || r == RoleAdmin
}

// RequireRole ensures the principal has one of the allowed roles. Admins pass
// every check.
func RequireRole(allowed ...Role) fiber.Handler {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role == RoleAdmin || len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
