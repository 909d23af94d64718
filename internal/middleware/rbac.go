package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"staffhub/internal/common"
	"staffhub/internal/repositories"
)

// RBACMiddleware gates routes on tenant-scoped roles.
type RBACMiddleware struct {
	roleRepo repositories.RoleRepository
}

func NewRBACMiddleware(roleRepo repositories.RoleRepository) *RBACMiddleware {
	return &RBACMiddleware{roleRepo: roleRepo}
}

// RequireRole passes requests whose authenticated user holds at least one of
// the given roles within the resolved tenant.
func (m *RBACMiddleware) RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			tc, ok := common.GetTenantContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not resolved")
			}
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}

			names, err := m.roleRepo.NamesForUser(ctx, tc, userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load roles")
			}
			for _, name := range names {
				if allowed[name] {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient role")
		}
	}
}
