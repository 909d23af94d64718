package middleware

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/services"
)

// JWTMiddleware validates the Bearer access token and publishes the user id
// into the request context. The token's tenant claim must match the tenant the
// resolver already bound to this request; an access token minted under one
// tenant is useless against another. Tokens issued at or before the user's
// session revocation marker are rejected even though their signature and
// expiry are still good.
func JWTMiddleware(jwtSecret string, sessions caching.CacheService) echo.MiddlewareFunc {
	secret := []byte(jwtSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			claims := &services.TokenClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid user_id in token")
			}

			tc, ok := common.GetTenantContext(c.Request().Context())
			if !ok || claims.TenantID != tc.TenantID.String() {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token does not match tenant")
			}

			marker, err := sessions.GetString(c.Request().Context(), caching.SessionRevocationKey(tc.TenantID, userID))
			if err != nil {
				// Redis being down must not take auth down with it
				log.Printf("WARN: session revocation lookup failed: %v", err)
			} else if marker != "" {
				revokedAt, perr := strconv.ParseInt(marker, 10, 64)
				if perr == nil && claims.IssuedAt != nil && claims.IssuedAt.Unix() <= revokedAt {
					return echo.NewHTTPError(http.StatusUnauthorized, "Session revoked")
				}
			}

			c.SetRequest(c.Request().WithContext(common.WithUserID(c.Request().Context(), userID)))
			return next(c)
		}
	}
}
