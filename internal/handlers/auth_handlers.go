package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/services"
)

const (
	authRateLimit  = 20
	authRateWindow = time.Minute
)

// AuthHandlers exposes login, refresh, and logout. All three run behind the
// tenant resolver; the handlers never pick a tenant themselves.
type AuthHandlers struct {
	authService services.AuthService
	cacheSvc    caching.CacheService
}

func NewAuthHandlers(authService services.AuthService, cacheSvc caching.CacheService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cacheSvc:    cacheSvc,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	DeviceID string `json:"device_id" validate:"required"`
}

func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	tc, ok := common.GetTenantContext(ctx)
	if !ok {
		return common.SendError(c, common.ErrTenantSubdomainMissing)
	}
	if err := h.checkRateLimit(c, "login"); err != nil {
		return err
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, err := h.authService.Login(ctx, tc, req.Email, req.Password, req.DeviceID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	UserID       string `json:"user_id" validate:"required,uuid4"`
	DeviceID     string `json:"device_id" validate:"required"`
}

// Refresh rotates the presented token. Every protocol rejection comes back as
// the same opaque 401.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	tc, ok := common.GetTenantContext(ctx)
	if !ok {
		return common.SendError(c, common.ErrTenantSubdomainMissing)
	}
	if err := h.checkRateLimit(c, "refresh"); err != nil {
		return err
	}

	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user_id format")
	}

	pair, err := h.authService.Refresh(ctx, tc, req.RefreshToken, userID, req.DeviceID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	UserID       string `json:"user_id" validate:"required,uuid4"`
}

func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	tc, ok := common.GetTenantContext(ctx)
	if !ok {
		return common.SendError(c, common.ErrTenantSubdomainMissing)
	}

	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user_id format")
	}

	if err := h.authService.Logout(ctx, tc, req.RefreshToken, userID); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandlers) checkRateLimit(c echo.Context, route string) error {
	key := fmt.Sprintf("auth:%s:%s", route, c.RealIP())
	limited, err := h.cacheSvc.IsRateLimited(c.Request().Context(), key, authRateLimit, authRateWindow)
	if err != nil {
		// Redis being down must not take auth down with it
		log.Printf("WARN: rate limit check failed: %v", err)
		return nil
	}
	if limited {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
	}
	return nil
}
