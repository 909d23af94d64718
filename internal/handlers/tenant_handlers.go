package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"staffhub/internal/common"
	"staffhub/internal/services"
)

// TenantHandlers exposes the operator-facing provisioning surface. These
// routes are admin-only; failures carry enough detail for a safe retry.
type TenantHandlers struct {
	tenantService services.TenantService
}

func NewTenantHandlers(tenantService services.TenantService) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService}
}

// CreateTenant provisions a tenant end-to-end: registry row, schema,
// migrations, seed roles, admin user, module subscriptions, config record.
func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tenant, err := h.tenantService.CreateTenant(ctx, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, tenant)
}

type RenameSubdomainRequest struct {
	Subdomain string `json:"subdomain" validate:"required,hostname_rfc1123"`
}

// RenameSubdomain changes a tenant's subdomain, moving its tables to the new
// schema when the derived name changes.
func (h *TenantHandlers) RenameSubdomain(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := common.ValidateUUID(c.Param("id"), "tenant id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req RenameSubdomainRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tenant, err := h.tenantService.RenameTenantSchema(ctx, tenantID, req.Subdomain)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandlers) GetTenant(c echo.Context) error {
	tenantID, err := common.ValidateUUID(c.Param("id"), "tenant id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tenant, err := h.tenantService.GetByID(c.Request().Context(), tenantID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// DeactivateTenant soft-deletes the tenant; reads stop resolving it but its
// schema is retained.
func (h *TenantHandlers) DeactivateTenant(c echo.Context) error {
	tenantID, err := common.ValidateUUID(c.Param("id"), "tenant id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.tenantService.DeactivateTenant(c.Request().Context(), tenantID); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListModules returns the module keys enabled for the resolved tenant.
func (h *TenantHandlers) ListModules(c echo.Context) error {
	ctx := c.Request().Context()

	tc, ok := common.GetTenantContext(ctx)
	if !ok {
		return common.SendError(c, common.ErrTenantSubdomainMissing)
	}

	keys, err := h.tenantService.EnabledModules(ctx, tc)
	if err != nil {
		return common.SendError(c, err)
	}
	if keys == nil {
		keys = []string{}
	}
	return c.JSON(http.StatusOK, map[string][]string{"modules": keys})
}

func (h *TenantHandlers) ListTenants(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	tenants, err := h.tenantService.List(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, tenants)
}
