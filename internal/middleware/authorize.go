package middleware

import (
	"github.com/gin-gonic/gin"

	"ecommerce/api/internal/apperr"
	"ecommerce/api/internal/models"
	"ecommerce/api/internal/service"
)

// RequireRoles must run after Auth.
func RequireRoles(allowed []models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := service.UserFromContext(c.Request.Context())
		if !ok {
			_ = c.Error(apperr.Auth("You are not logged in! Please log in to get access."))
			c.Abort()
			return
		}

		if err := service.Allowed(allowed, user.Role); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Next()
	}
}
