package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ecommerce/api/internal/models"
	"ecommerce/api/internal/service"
)

const accessTokenKey = "access_token"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// Auth resolves the bearer token to a user and puts it on the request
// context for the handlers behind it.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(service.ContextWithUser(c.Request.Context(), user))
		c.Set(accessTokenKey, token)

		c.Next()
	}
}

func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer") {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// AccessToken returns the token Auth accepted for this request.
func AccessToken(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}
