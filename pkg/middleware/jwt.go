package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jordanlanch/leadintake/pkg/auth"
	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// JWTMiddleware authenticates requests with a Bearer token and stores the
// caller's id, email, and role in the echo context. When db is non-nil the
// account is also checked to still exist, so tokens of removed users stop
// working immediately.
func JWTMiddleware(secret string, db *gorm.DB) echo.MiddlewareFunc {
	return JWTMiddlewareWithBlacklist(secret, nil, db)
}

// JWTMiddlewareWithBlacklist is JWTMiddleware with revocation support:
// tokens revoked through logout are rejected even though their signature
// and expiry are still valid.
func JWTMiddlewareWithBlacklist(secret string, blacklist *auth.TokenBlacklist, db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header is required",
				})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token_format",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}

			token := parts[1]
			claims, err := auth.ValidateJWTWithBlacklist(c.Request().Context(), token, secret, blacklist)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Token is invalid or expired",
				})
			}

			role := claims.Role
			if db != nil {
				var user models.User
				err := db.WithContext(c.Request().Context()).
					First(&user, "id = ?", claims.UserID).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
						Error:   "user_not_found",
						Message: "User account not found",
					})
				}
				if err != nil {
					return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
						Error:   "internal_error",
						Message: "Failed to verify user",
					})
				}
				// The database role wins over whatever the token was
				// minted with.
				role = user.Role
			}

			// The raw token is kept for logout, which revokes it.
			c.Set("token", token)
			c.Set("user_id", claims.UserID)
			c.Set("user_email", claims.Email)
			c.Set("user_role", role)

			return next(c)
		}
	}
}
