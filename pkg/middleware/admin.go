package middleware

import (
	"net/http"

	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// RequireAdmin ensures the authenticated user has the admin role. The
// role is re-read from the database so a revoked admin cannot keep using
// an old token.
func RequireAdmin(db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get("user_id").(string)
			if !ok || userID == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
			}

			var user models.User
			if err := db.WithContext(c.Request().Context()).Where("id = ?", userID).First(&user).Error; err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "user_not_found",
					Message: "User not found",
				})
			}

			if user.Role != models.RoleAdmin {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "forbidden",
					Message: "Admin access required",
				})
			}

			c.Set("user_role", user.Role)
			return next(c)
		}
	}
}
