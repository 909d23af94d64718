package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"staffhub/internal/common"
	"staffhub/internal/models"
	"staffhub/internal/services"
)

// XTenantHeader is the development-only override; it carries either a tenant
// UUID or a subdomain and is honored only when trustDev is set.
const XTenantHeader = "X-Tenant"

// TenantResolver determines the active tenant for every inbound request and
// publishes an immutable TenantContext into the request context. It fails
// closed: outside the explicit development fallback, a request that cannot be
// bound to a tenant never reaches a handler.
func TenantResolver(tenants services.TenantService, trustDev bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			tenant, err := resolveTenant(c, tenants, trustDev)
			if err != nil {
				return common.SendError(c, err)
			}

			c.SetRequest(c.Request().WithContext(common.WithTenantContext(ctx, tenant.Context())))
			return next(c)
		}
	}
}

func resolveTenant(c echo.Context, tenants services.TenantService, trustDev bool) (*models.Tenant, error) {
	ctx := c.Request().Context()

	// Development override header, highest priority
	if trustDev {
		if override := c.Request().Header.Get(XTenantHeader); override != "" {
			if id, err := uuid.Parse(override); err == nil {
				tenant, err := tenants.GetByID(ctx, id)
				if err != nil {
					return nil, err
				}
				if !tenant.IsActive {
					return nil, common.ErrTenantNotFound
				}
				return tenant, nil
			}
			return tenants.ResolveSubdomain(ctx, override)
		}
	}

	subdomain := subdomainFromHost(c.Request().Host)
	if subdomain == "" {
		if trustDev {
			return tenants.GetDefaultTenant(ctx)
		}
		return nil, common.ErrTenantSubdomainMissing
	}

	// An unknown subdomain is a hard 404 even in development mode; the
	// fallback applies only when no subdomain could be extracted at all.
	return tenants.ResolveSubdomain(ctx, subdomain)
}

// subdomainFromHost extracts the first label of the request host. Both
// tenant.localhost and tenant.example.com shapes qualify; a single-label host
// has no subdomain.
func subdomainFromHost(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return labels[0]
}
